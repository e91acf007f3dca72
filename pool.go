package bankpool

import (
	"io"
	"path/filepath"
	"runtime"

	"github.com/QuangTung97/bankpool/allocator"
	"github.com/QuangTung97/bankpool/config"
	"github.com/QuangTung97/bankpool/report"
	"github.com/QuangTung97/bankpool/tracer"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Config ...
type Config struct {
	Allocator allocator.Config
	// Tracer is nil when tracing is disabled
	Tracer *tracer.Config
	Logger *slog.Logger
}

// FromFile builds a Config from the file based configuration.
func FromFile(c config.Config) Config {
	result := Config{
		Allocator: c.AllocatorConfig(),
	}
	if c.Tracer.Enabled {
		tc := c.TracerConfig()
		result.Tracer = &tc
	}
	return result
}

// Pool is the entry point: banks, an optional tracer and call site capture.
type Pool struct {
	registry *allocator.Registry
	tracer   *tracer.Tracer
	logger   *slog.Logger
}

// New ...
func New(conf Config) *Pool {
	logger := conf.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{logger: logger}
	if conf.Tracer != nil {
		tc := *conf.Tracer
		if tc.Banks == 0 {
			tc.Banks = len(conf.Allocator.Banks)
		}
		p.tracer = tracer.New(tc)
		p.registry = allocator.NewRegistry(conf.Allocator, p.tracer)
	} else {
		p.registry = allocator.NewRegistry(conf.Allocator, nil)
	}
	return p
}

// Registry ...
func (p *Pool) Registry() *allocator.Registry {
	return p.registry
}

// Tracer returns nil when tracing is disabled.
func (p *Pool) Tracer() *tracer.Tracer {
	return p.tracer
}

// Init (re)initializes one bank. The tracer is left untouched.
func (p *Pool) Init(bank int) error {
	return p.registry.Init(bank)
}

// InitAll ...
func (p *Pool) InitAll() {
	p.registry.InitAll()
}

func callerSite(skip int) allocator.CallSite {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return allocator.CallSite{}
	}
	return allocator.CallSite{File: filepath.Base(file), Line: line}
}

// Malloc allocates size bytes from bank and records the caller.
// It returns NilAddr on failure.
func (p *Pool) Malloc(bank int, size uint32) allocator.Addr {
	addr, _ := p.MallocAt(bank, size, callerSite(1))
	return addr
}

// MallocAt is Malloc with an explicit call site.
func (p *Pool) MallocAt(bank int, size uint32, site allocator.CallSite) (allocator.Addr, error) {
	addr, err := p.registry.Allocate(bank, size, site)
	if err != nil {
		p.logger.Warn("malloc failed",
			"bank", bank, "size", size, "site", site.File, "line", site.Line, "err", err)
		return allocator.NilAddr, err
	}
	p.logger.Debug("malloc",
		"bank", bank, "size", size, "addr", addr.String(), "site", site.File, "line", site.Line)
	return addr, nil
}

// Free releases addr and records the caller. Addresses owned by no bank are ignored.
func (p *Pool) Free(addr allocator.Addr) {
	_ = p.FreeAt(addr, callerSite(1))
}

// FreeAt is Free with an explicit call site.
func (p *Pool) FreeAt(addr allocator.Addr, site allocator.CallSite) error {
	err := p.registry.Free(addr, site)
	switch {
	case err == nil:
		p.logger.Debug("free", "addr", addr.String(), "site", site.File, "line", site.Line)
	case errors.Is(err, allocator.ErrForeignAddress):
		p.logger.Debug("free of foreign address ignored",
			"addr", addr.String(), "site", site.File, "line", site.Line)
	default:
		p.logger.Warn("free failed",
			"addr", addr.String(), "site", site.File, "line", site.Line, "err", err)
	}
	return err
}

// Bytes returns the memory behind an allocation of size bytes.
func (p *Pool) Bytes(addr allocator.Addr, size uint32) []byte {
	return p.registry.Bytes(addr, size)
}

// Usage ...
func (p *Pool) Usage(bank int) (uint8, error) {
	return p.registry.Usage(bank)
}

// LiveAllocationDelta is the number of traced allocations minus frees. It is 0 without a tracer.
func (p *Pool) LiveAllocationDelta() int64 {
	if p.tracer == nil {
		return 0
	}
	return p.tracer.NetAllocCount()
}

// Snapshot returns an empty snapshot without a tracer.
func (p *Pool) Snapshot() tracer.Snapshot {
	if p.tracer == nil {
		return tracer.Snapshot{BankBytes: make([]uint64, p.registry.NumBanks())}
	}
	return p.tracer.Snapshot()
}

// Format ...
type Format string

// Report formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Report writes the tracer snapshot and the bank usage to w.
func (p *Pool) Report(w io.Writer, format Format) error {
	snap := p.Snapshot()
	usage := report.CollectUsage(p.registry)

	if p.tracer != nil {
		if snap.Flags.Has(tracer.FlagOverflow) {
			p.logger.Warn("tracer overflowed, double free detection is disabled",
				"nodes", snap.UnusedNodes+snap.UsedNodes)
		}
		if len(snap.DoubleFrees) > 0 {
			p.logger.Warn("double or invalid free detected", "count", len(snap.DoubleFrees))
		}
	}

	switch format {
	case FormatText:
		return report.WriteText(w, snap, usage)
	case FormatJSON:
		data, err := report.JSON(snap, usage)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return errors.Newf("unknown report format %q", format)
	}
}
