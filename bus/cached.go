package bus

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// CacheConfig mirrors the teacher pack's cache Config shape: size,
// associativity, and line size drive an Akita LRU directory. There are
// no hit/miss latency fields, since the pipeline core only distinguishes
// hit-or-defer (see DCB in the fault package), not cycle-exact latency.
type CacheConfig struct {
	Size          int
	Associativity int
	BlockSize     int
}

// DefaultL1DConfig returns a representative VR4300-scale L1 data cache
// configuration (8KB, 2-way, 16-byte line, matching the real part).
func DefaultL1DConfig() CacheConfig {
	return CacheConfig{Size: 8 * 1024, Associativity: 2, BlockSize: 16}
}

// CachedBus wraps a backing Bus with an Akita-directory-managed L1 data
// cache. Reads and writes that hit populate/update the cache; misses
// fall through to the backing bus and allocate a line.
type CachedBus struct {
	backing   Bus
	config    CacheConfig
	directory *akitacache.DirectoryImpl
	dataStore [][]byte
}

// NewCachedBus builds a CachedBus in front of backing.
func NewCachedBus(backing Bus, config CacheConfig) *CachedBus {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity
	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}
	return &CachedBus{
		backing: backing,
		config:  config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
	}
}

func (c *CachedBus) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *CachedBus) blockAddr(addr uint64) uint64 {
	bs := uint64(c.config.BlockSize)
	return (addr / bs) * bs
}

// ReadWord implements Bus. On a cache miss it fetches a full line from
// the backing bus, allocates it (evicting and writing back a dirty
// victim line if needed), then services the read from the line.
func (c *CachedBus) ReadWord(addr uint64, size int) (uint64, bool) {
	if size <= 0 || size > c.config.BlockSize {
		return c.backing.ReadWord(addr, size)
	}
	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)
	if block == nil || !block.IsValid {
		if !c.fill(blockAddr) {
			return 0, false
		}
		block = c.directory.Lookup(0, blockAddr)
	}
	c.directory.Visit(block)
	offset := addr - blockAddr
	line := c.dataStore[c.blockIndex(block)]
	var word uint64
	for i := 0; i < size; i++ {
		word |= uint64(line[int(offset)+i]) << (8 * i)
	}
	return word, true
}

// WriteWord implements Bus with a write-allocate policy: a miss first
// fills the line from the backing bus before applying the write.
func (c *CachedBus) WriteWord(addr uint64, word uint64, dqm uint64) {
	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)
	if block == nil || !block.IsValid {
		if !c.fill(blockAddr) {
			return
		}
		block = c.directory.Lookup(0, blockAddr)
	}
	c.directory.Visit(block)
	offset := addr - blockAddr
	line := c.dataStore[c.blockIndex(block)]
	for i := 0; i < 8 && int(offset)+i < len(line); i++ {
		if (dqm>>(8*i))&0xff != 0 {
			continue
		}
		line[int(offset)+i] = byte(word >> (8 * i))
	}
	block.IsDirty = true
}

// fill fetches a full line from the backing bus into a victim slot,
// writing back the evicted line if it was dirty.
func (c *CachedBus) fill(blockAddr uint64) bool {
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return false
	}
	data := c.dataStore[c.blockIndex(victim)]
	if victim.IsValid && victim.IsDirty {
		c.writeback(victim.Tag, data)
	}
	for i := 0; i < len(data); i += 8 {
		n := len(data) - i
		if n > 8 {
			n = 8
		}
		w, ok := c.backing.ReadWord(blockAddr+uint64(i), n)
		if !ok {
			return false
		}
		for j := 0; j < n; j++ {
			data[i+j] = byte(w >> (8 * j))
		}
	}
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	return true
}

func (c *CachedBus) writeback(blockAddr uint64, data []byte) {
	for i := 0; i < len(data); i += 8 {
		n := len(data) - i
		if n > 8 {
			n = 8
		}
		var w uint64
		for j := 0; j < n; j++ {
			w |= uint64(data[i+j]) << (8 * j)
		}
		c.backing.WriteWord(blockAddr+uint64(i), w, 0)
	}
}
