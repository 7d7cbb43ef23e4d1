package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/agentic-research/panlens/internal/config"
	"github.com/agentic-research/panlens/internal/logger"
	"github.com/agentic-research/panlens/internal/service"
	"github.com/agentic-research/panlens/internal/store"
)

// agentCmd exposes the query surface as MCP tools over stdio, so LLM agents
// can explore policy objects without the HTTP layer.
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Serve query tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		log := logger.New(cfg.Log.Level, "json")

		var db *sql.DB
		if cfg.CachePath != "" {
			db, err = store.Open(cfg.CachePath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
		}
		svc := service.New(osfs.New(cfg.ConfigsDir), db, log)

		mcpServer := server.NewMCPServer("panlens", "1.0.0", server.WithToolCapabilities(true))
		registerTools(mcpServer, svc)
		return server.ServeStdio(mcpServer)
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func registerTools(s *server.MCPServer, svc *service.Service) {
	s.AddTool(
		mcp.NewTool("list_configs",
			mcp.WithDescription("List the available configuration exports"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			configs, err := svc.Configs()
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(oj.JSON(configs)), nil
		},
	)

	s.AddTool(
		mcp.NewTool("list_objects",
			mcp.WithDescription("List objects of one kind in a configuration, optionally filtered. Filters use the filter[field][operator]=value form, e.g. filter[name][starts_with]=web."),
			mcp.WithString("config", mcp.Required(), mcp.Description("Configuration file name, e.g. panorama.xml")),
			mcp.WithString("kind", mcp.Required(), mcp.Description("Object kind: addresses, services, security-rules, device-groups, ...")),
			mcp.WithString("filter", mcp.Description("Filter expression, e.g. filter[location][eq]=shared")),
			mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
			mcp.WithNumber("page_size", mcp.Description("Items per page (max 10000)")),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cfgName, err := req.RequireString("config")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			kind, err := req.RequireString("kind")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			params, err := filterParams(req.GetString("filter", ""))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			pageNum := int(req.GetFloat("page", 1))
			size := int(req.GetFloat("page_size", 100))

			result, err := svc.List(cfgName, kind, params, pageNum, size, false)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(oj.JSON(result)), nil
		},
	)

	s.AddTool(
		mcp.NewTool("get_object",
			mcp.WithDescription("Fetch one object by kind and name"),
			mcp.WithString("config", mcp.Required()),
			mcp.WithString("kind", mcp.Required()),
			mcp.WithString("name", mcp.Required()),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cfgName, err := req.RequireString("config")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			kind, err := req.RequireString("kind")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			rec, err := svc.GetByName(cfgName, kind, name)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(oj.JSON(rec)), nil
		},
	)

	s.AddTool(
		mcp.NewTool("device_group_summary",
			mcp.WithDescription("Object counts for one device-group (direct and subtree totals)"),
			mcp.WithString("config", mcp.Required()),
			mcp.WithString("group", mcp.Required()),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cfgName, err := req.RequireString("config")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			group, err := req.RequireString("group")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			sum, err := svc.DeviceGroupSummary(cfgName, group)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(oj.JSON(sum)), nil
		},
	)

	s.AddTool(
		mcp.NewTool("parsing_status",
			mcp.WithDescription("Parse status of every configuration seen so far"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(oj.JSON(svc.StatusAll())), nil
		},
	)
}

// filterParams splits a raw query-string fragment into the parameter map
// the filter engine consumes.
func filterParams(raw string) (map[string][]string, error) {
	params := make(map[string][]string)
	if raw == "" {
		return params, nil
	}
	for _, pair := range strings.Split(raw, "&") {
		k, v, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("malformed filter fragment %q", pair)
		}
		params[k] = append(params[k], v)
	}
	return params, nil
}
