package allocator

// Config ...
type Config struct {
	Banks []BankConfig
}

// CallSite is the source location that requested an allocation or a free.
type CallSite struct {
	File string
	Line int
}

// Tracer mirrors every successful allocation and every free.
// It is called while the bank lock is held and must not call back into the Registry.
type Tracer interface {
	Add(bank int, size uint32, addr Addr, site CallSite) bool
	Del(addr Addr, site CallSite) bool
}

// Registry is the fixed collection of banks.
type Registry struct {
	banks  []*Bank
	tracer Tracer
}

func allocatorValidateConfig(conf Config) {
	if len(conf.Banks) == 0 {
		panic("Banks list must not empty")
	}
	if len(conf.Banks) > maxBanks {
		panic("too many banks")
	}
}

// NewRegistry creates every bank of conf. tr may be nil to disable tracing.
func NewRegistry(conf Config, tr Tracer) *Registry {
	allocatorValidateConfig(conf)

	banks := make([]*Bank, 0, len(conf.Banks))
	for i, bankConf := range conf.Banks {
		banks = append(banks, NewBank(i, bankConf))
	}

	return &Registry{
		banks:  banks,
		tracer: tr,
	}
}

// NumBanks ...
func (r *Registry) NumBanks() int {
	return len(r.banks)
}

// Bank returns nil for an unknown id.
func (r *Registry) Bank(id int) *Bank {
	if id < 0 || id >= len(r.banks) {
		return nil
	}
	return r.banks[id]
}

func (r *Registry) getBank(id int) (*Bank, error) {
	b := r.Bank(id)
	if b == nil {
		return nil, ErrInvalidBank
	}
	return b, nil
}

// Init (re)initializes a bank, dropping all of its allocations.
func (r *Registry) Init(id int) error {
	b, err := r.getBank(id)
	if err != nil {
		return err
	}
	b.Init()
	return nil
}

// InitAll ...
func (r *Registry) InitAll() {
	for _, b := range r.banks {
		b.Init()
	}
}

// Allocate carves size bytes out of bank id.
func (r *Registry) Allocate(id int, size uint32, site CallSite) (Addr, error) {
	b, err := r.getBank(id)
	if err != nil {
		return NilAddr, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	offset, err := b.allocate(size)
	if err != nil {
		return NilAddr, err
	}

	addr := makeAddr(id, offset)
	if r.tracer != nil {
		r.tracer.Add(id, size, addr, site)
	}
	return addr, nil
}

// Free releases the allocation at addr. An address owned by no bank is ignored
// and reported as ErrForeignAddress.
func (r *Registry) Free(addr Addr, site CallSite) error {
	id, ok := r.Resolve(addr)
	if !ok {
		return ErrForeignAddress
	}
	b := r.banks[id]

	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.free(r.offsetOf(b, addr))
	if r.tracer != nil {
		r.tracer.Del(addr, site)
	}
	return err
}

// Usage ...
func (r *Registry) Usage(id int) (uint8, error) {
	b, err := r.getBank(id)
	if err != nil {
		return 0, err
	}
	return b.Usage(), nil
}

// Table ...
func (r *Registry) Table(id int) ([]uint16, error) {
	b, err := r.getBank(id)
	if err != nil {
		return nil, err
	}
	return b.Table(), nil
}

// Bytes returns the memory behind addr, up to size bytes. It returns nil for a foreign address.
func (r *Registry) Bytes(addr Addr, size uint32) []byte {
	id, ok := r.Resolve(addr)
	if !ok {
		return nil
	}
	b := r.banks[id]
	return b.bytes(r.offsetOf(b, addr), size)
}
