// Package config holds the bank layout and tracer capacity, loaded from TOML.
package config

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/QuangTung97/bankpool/allocator"
	"github.com/QuangTung97/bankpool/tracer"
	"github.com/cockroachdb/errors"
)

// Bank ...
type Bank struct {
	Name      string `toml:"name"`
	BlockSize uint32 `toml:"block_size"`
	PoolSize  uint32 `toml:"pool_size"`
}

// Tracer ...
type Tracer struct {
	Enabled         bool   `toml:"enabled"`
	Nodes           uint32 `toml:"nodes"`
	RepeatSlots     int    `toml:"repeat_slots"`
	DoubleFreeSlots int    `toml:"double_free_slots"`
}

// Config ...
type Config struct {
	Banks  []Bank `toml:"bank"`
	Tracer Tracer `toml:"tracer"`
}

// Bank ids of the default layout.
const (
	SRAMIN = iota
	SRAMEX
	SRAMCCM
	SRAMEX1
	SRAMEX2
)

// Default returns the five bank layout with tracing enabled.
func Default() Config {
	return Config{
		Banks: []Bank{
			{Name: "SRAMIN", BlockSize: 32, PoolSize: 100 * 1024},
			{Name: "SRAMEX", BlockSize: 32, PoolSize: 170 * 1024},
			{Name: "SRAMCCM", BlockSize: 32, PoolSize: 32},
			{Name: "SRAMEX1", BlockSize: 32, PoolSize: 50 * 1024},
			{Name: "SRAMEX2", BlockSize: 32, PoolSize: 50 * 1024},
		},
		Tracer: Tracer{
			Enabled:         true,
			Nodes:           1000,
			RepeatSlots:     256,
			DoubleFreeSlots: 100,
		},
	}
}

const maxTableSize = 1<<16 - 1

// Validate ...
func (c Config) Validate() error {
	if len(c.Banks) == 0 {
		return errors.New("at least one bank is required")
	}
	for i, b := range c.Banks {
		if b.BlockSize == 0 {
			return errors.Newf("bank %d (%s): block_size must be greater than zero", i, b.Name)
		}
		if b.PoolSize == 0 {
			return errors.Newf("bank %d (%s): pool_size must be greater than zero", i, b.Name)
		}
		if b.PoolSize%b.BlockSize != 0 {
			return errors.Newf("bank %d (%s): pool_size %d is not a multiple of block_size %d",
				i, b.Name, b.PoolSize, b.BlockSize)
		}
		if b.PoolSize/b.BlockSize > maxTableSize {
			return errors.Newf("bank %d (%s): %d blocks do not fit in a 16 bit run tag",
				i, b.Name, b.PoolSize/b.BlockSize)
		}
	}

	if !c.Tracer.Enabled {
		return nil
	}
	if c.Tracer.Nodes == 0 {
		return errors.New("tracer: nodes must be greater than zero")
	}
	if c.Tracer.RepeatSlots <= 0 {
		return errors.New("tracer: repeat_slots must be greater than zero")
	}
	if c.Tracer.DoubleFreeSlots <= 0 {
		return errors.New("tracer: double_free_slots must be greater than zero")
	}
	return nil
}

// AllocatorConfig ...
func (c Config) AllocatorConfig() allocator.Config {
	banks := make([]allocator.BankConfig, 0, len(c.Banks))
	for _, b := range c.Banks {
		banks = append(banks, allocator.BankConfig{
			Name:      b.Name,
			BlockSize: b.BlockSize,
			PoolSize:  b.PoolSize,
		})
	}
	return allocator.Config{Banks: banks}
}

// TracerConfig ...
func (c Config) TracerConfig() tracer.Config {
	return tracer.Config{
		Nodes:           c.Tracer.Nodes,
		Banks:           len(c.Banks),
		RepeatSlots:     c.Tracer.RepeatSlots,
		DoubleFreeSlots: c.Tracer.DoubleFreeSlots,
	}
}

// Parse decodes TOML. Missing tracer keys keep their defaults and
// an empty bank list falls back to the default banks.
func Parse(data string) (Config, error) {
	c := Config{Tracer: Default().Tracer}
	if _, err := toml.Decode(data, &c); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if len(c.Banks) == 0 {
		c.Banks = Default().Banks
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and parses a TOML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	c, err := Parse(string(data))
	if err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}
	return c, nil
}

// Encode writes c as TOML.
func Encode(w io.Writer, c Config) error {
	return toml.NewEncoder(w).Encode(c)
}
