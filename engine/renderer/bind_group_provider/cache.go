package bind_group_provider

import (
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"
)

type cacheKey struct {
	pipeline render_resource.PipelineHandle
	group    uint32
	bindings string
}

type cacheEntry struct {
	handle render_resource.BindGroupHandle
	used   bool
}

// Cache reuses device bind groups for identical (pipeline, group, bindings) requests.
// Entries not requested between two Sweep calls are released.
type Cache struct {
	dev     device.Device
	entries map[cacheKey]*cacheEntry
}

// NewCache creates an empty bind group cache.
//
// Parameters:
//   - dev: the device bind groups are created on
//
// Returns:
//   - *Cache: the new cache
func NewCache(dev device.Device) *Cache {
	return &Cache{
		dev:     dev,
		entries: make(map[cacheKey]*cacheEntry),
	}
}

// Get returns the bind group for bindings at group of pipeline, creating it on first use.
//
// Parameters:
//   - p: the pipeline whose layout the group must match
//   - group: the bind group index
//   - bindings: the bindings of that group, sorted by slot
//
// Returns:
//   - render_resource.BindGroupHandle: the bind group
//   - error: error if the device rejects the bindings
func (c *Cache) Get(p render_resource.PipelineHandle, group uint32, bindings []render_resource.ResourceBinding) (render_resource.BindGroupHandle, error) {
	key := cacheKey{pipeline: p, group: group, bindings: bindingsKey(bindings)}
	if e, ok := c.entries[key]; ok {
		e.used = true
		return e.handle, nil
	}

	h, err := c.dev.BindResources(p, group, bindings)
	if err != nil {
		return 0, err
	}
	c.entries[key] = &cacheEntry{handle: h, used: true}
	return h, nil
}

// Sweep releases every bind group not requested since the previous sweep.
//
// Returns:
//   - int: the number of released bind groups
func (c *Cache) Sweep() int {
	released := 0
	for key, e := range c.entries {
		if !e.used {
			c.dev.ReleaseBindGroup(e.handle)
			delete(c.entries, key)
			released++
			continue
		}
		e.used = false
	}
	return released
}

// Len returns the number of live bind groups.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Clear releases every bind group.
func (c *Cache) Clear() {
	for key, e := range c.entries {
		c.dev.ReleaseBindGroup(e.handle)
		delete(c.entries, key)
	}
}

func bindingsKey(bindings []render_resource.ResourceBinding) string {
	var sb strings.Builder
	for _, b := range bindings {
		sb.WriteString(strconv.FormatUint(uint64(b.Slot), 36))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(int(b.Kind)))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(b.Handle), 36))
		sb.WriteByte(';')
	}
	return sb.String()
}
