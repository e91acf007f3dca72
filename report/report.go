// Package report renders tracer snapshots for humans and tools.
// Nothing here touches allocator or tracer locks: it only reads copies.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/QuangTung97/bankpool/allocator"
	"github.com/QuangTung97/bankpool/tracer"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// BankUsage ...
type BankUsage struct {
	ID        int
	Name      string
	BlockSize uint32
	PoolSize  uint32
	Percent   uint8
}

// CollectUsage reads the usage of every bank of r.
func CollectUsage(r *allocator.Registry) []BankUsage {
	result := make([]BankUsage, 0, r.NumBanks())
	for id := 0; id < r.NumBanks(); id++ {
		b := r.Bank(id)
		result = append(result, BankUsage{
			ID:        id,
			Name:      b.Name(),
			BlockSize: b.BlockSize(),
			PoolSize:  b.PoolSize(),
			Percent:   b.Usage(),
		})
	}
	return result
}

func bankName(usage []BankUsage, id int) string {
	if id < len(usage) && usage[id].Name != "" {
		return usage[id].Name
	}
	return "bank" + strconv.Itoa(id)
}

func siteString(site allocator.CallSite) string {
	return fmt.Sprintf("%s(%d)", site.File, site.Line)
}

// FlagString ...
func FlagString(f tracer.Flags) string {
	s := ""
	if f.Has(tracer.FlagEmpty) {
		s += "EMPTY"
	}
	if f.Has(tracer.FlagOverflow) {
		if s != "" {
			s += "|"
		}
		s += "OVERFLOW"
	}
	if s == "" {
		return "-"
	}
	return s
}

// WriteText writes the summary, a per bank table, and the call site tables.
func WriteText(w io.Writer, snap tracer.Snapshot, usage []BankUsage) error {
	_, err := fmt.Fprintf(w,
		"malloc/free count = %d, flag = 0x%04x (%s), free node cnt = %d, used node cnt = %d\n",
		snap.NetAllocCount, uint16(snap.Flags), FlagString(snap.Flags), snap.UnusedNodes, snap.UsedNodes)
	if err != nil {
		return err
	}

	banks := tablewriter.NewWriter(w)
	banks.SetHeader([]string{"Bank", "Name", "Block", "Pool", "Usage", "Traced"})
	banks.SetAlignment(tablewriter.ALIGN_LEFT)
	for id := 0; id < len(usage) || id < len(snap.BankBytes); id++ {
		row := []string{strconv.Itoa(id), bankName(usage, id), "", "", "", ""}
		if id < len(usage) {
			row[2] = humanize.IBytes(uint64(usage[id].BlockSize))
			row[3] = humanize.IBytes(uint64(usage[id].PoolSize))
			row[4] = strconv.Itoa(int(usage[id].Percent)) + "%"
		}
		if id < len(snap.BankBytes) {
			row[5] = humanize.IBytes(snap.BankBytes[id])
		}
		banks.Append(row)
	}
	banks.Render()

	if len(snap.Repeats) > 0 {
		sites := tablewriter.NewWriter(w)
		sites.SetHeader([]string{"Malloc site", "Live"})
		sites.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, r := range snap.Repeats {
			sites.Append([]string{siteString(r.Site), strconv.Itoa(int(r.Count))})
		}
		sites.Render()
	}

	if len(snap.DoubleFrees) > 0 {
		if _, err := fmt.Fprintf(w, "refree pointer, total %d:\n", len(snap.DoubleFrees)); err != nil {
			return err
		}
		refree := tablewriter.NewWriter(w)
		refree.SetHeader([]string{"Free site"})
		refree.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, site := range snap.DoubleFrees {
			refree.Append([]string{siteString(site)})
		}
		refree.Render()
	}
	return nil
}
