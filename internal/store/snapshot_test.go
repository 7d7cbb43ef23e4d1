package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/panlens/api"
)

func buildTestSnapshot() *Snapshot {
	b := NewBuilder()
	shared := api.Location{Kind: api.LocationShared}
	dgA := api.Location{Kind: api.LocationDeviceGroup, Name: "DG-A"}
	dgB := api.Location{Kind: api.LocationDeviceGroup, Name: "DG-B", ParentChain: []string{"DG-A"}}

	b.Add(api.Record{Name: "dns-primary", Kind: api.KindAddresses, SourcePath: "/config/shared/address/entry[@name='dns-primary']", Location: shared, Fields: map[string]any{"ip-netmask": "8.8.8.8/32"}})
	b.Add(api.Record{Name: "web-1", Kind: api.KindAddresses, SourcePath: "/config/devices/entry[@name='localhost.localdomain']/device-group/entry[@name='DG-A']/address/entry[@name='web-1']", Location: dgA})
	b.Add(api.Record{Name: "web-2", Kind: api.KindAddresses, SourcePath: "/config/devices/entry[@name='localhost.localdomain']/device-group/entry[@name='DG-A']/address/entry[@name='web-2']", Location: dgA})
	b.Add(api.Record{Name: "edge-1", Kind: api.KindAddresses, SourcePath: "/config/devices/entry[@name='localhost.localdomain']/device-group/entry[@name='DG-A']/device-group/entry[@name='DG-B']/address/entry[@name='edge-1']", Location: dgB})
	b.Add(api.Record{Name: "DG-A", Kind: api.KindDeviceGroups, SourcePath: "/config/devices/entry[@name='localhost.localdomain']/device-group/entry[@name='DG-A']", Location: dgA})
	b.Add(api.Record{Name: "DG-B", Kind: api.KindDeviceGroups, SourcePath: "/config/devices/entry[@name='localhost.localdomain']/device-group/entry[@name='DG-A']/device-group/entry[@name='DG-B']", Location: dgB})
	b.SetParent("DG-B", "DG-A")
	return b.Seal()
}

func TestSnapshot_KindOrder(t *testing.T) {
	snap := buildTestSnapshot()
	recs := snap.Kind(api.KindAddresses)
	require.Len(t, recs, 4)
	assert.Equal(t, "dns-primary", recs[0].Name)
	assert.Equal(t, "edge-1", recs[3].Name)
	assert.Empty(t, snap.Kind(api.KindServices))
}

func TestSnapshot_ByNameCaseInsensitive(t *testing.T) {
	snap := buildTestSnapshot()

	rec, ok := snap.ByName(api.KindAddresses, "WEB-1")
	require.True(t, ok)
	assert.Equal(t, "web-1", rec.Name)

	_, ok = snap.ByName(api.KindServices, "web-1")
	assert.False(t, ok, "names are scoped per kind")
	_, ok = snap.ByName(api.KindAddresses, "missing")
	assert.False(t, ok)
}

func TestSnapshot_ByNameFirstWins(t *testing.T) {
	b := NewBuilder()
	b.Add(api.Record{Name: "dup", Kind: api.KindAddresses, SourcePath: "/config/shared/address/entry[@name='dup']", Location: api.Location{Kind: api.LocationShared}})
	b.Add(api.Record{Name: "dup", Kind: api.KindAddresses, SourcePath: "/config/devices/entry[@name='x']/device-group/entry[@name='DG-A']/address/entry[@name='dup']", Location: api.Location{Kind: api.LocationDeviceGroup, Name: "DG-A"}})
	snap := b.Seal()

	rec, ok := snap.ByName(api.KindAddresses, "dup")
	require.True(t, ok)
	assert.Equal(t, api.LocationShared, rec.Location.Kind)

	// Both remain addressable by path.
	_, ok = snap.ByPath("/config/devices/entry[@name='x']/device-group/entry[@name='DG-A']/address/entry[@name='dup']")
	assert.True(t, ok)
}

func TestSnapshot_ByPath(t *testing.T) {
	snap := buildTestSnapshot()

	rec, ok := snap.ByPath("/config/shared/address/entry[@name='dns-primary']")
	require.True(t, ok)
	assert.Equal(t, "dns-primary", rec.Name)

	_, ok = snap.ByPath("/config/shared/address/entry[@name='other']")
	assert.False(t, ok)
}

func TestSnapshot_LocationCounts(t *testing.T) {
	snap := buildTestSnapshot()
	dgA := api.Location{Kind: api.LocationDeviceGroup, Name: "DG-A"}

	assert.Equal(t, 2, snap.CountAt(api.KindAddresses, dgA))
	assert.Equal(t, 1, snap.CountAt(api.KindAddresses, api.Location{Kind: api.LocationShared}))
	assert.Equal(t, 0, snap.CountAt(api.KindServices, dgA))

	bm := snap.OrdinalsAt(api.KindAddresses, dgA)
	require.NotNil(t, bm)
	recs := snap.Kind(api.KindAddresses)
	it := bm.Iterator()
	var names []string
	for it.HasNext() {
		names = append(names, recs[it.Next()].Name)
	}
	assert.Equal(t, []string{"web-1", "web-2"}, names)

	assert.Nil(t, snap.OrdinalsAt(api.KindServices, dgA))
}

func TestContainer_Swap(t *testing.T) {
	c := NewContainer()
	assert.Nil(t, c.Load())

	first := buildTestSnapshot()
	c.Swap(first)
	assert.Same(t, first, c.Load())

	// Readers racing a swap always see a complete snapshot.
	var wg sync.WaitGroup
	second := buildTestSnapshot()
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := c.Load()
				_, ok := snap.ByName(api.KindAddresses, "web-1")
				assert.True(t, ok)
			}
		}()
	}
	c.Swap(second)
	wg.Wait()
	assert.Same(t, second, c.Load())
}
