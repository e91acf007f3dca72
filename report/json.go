package report

import (
	"github.com/QuangTung97/bankpool/allocator"
	"github.com/QuangTung97/bankpool/tracer"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

func siteJSON(json *jwriter.ObjectState, site allocator.CallSite) {
	json.Name("File").String(site.File)
	json.Name("Line").Int(site.Line)
}

// JSON encodes the same content as WriteText.
func JSON(snap tracer.Snapshot, usage []BankUsage) ([]byte, error) {
	w := jwriter.NewWriter()
	obj := w.Object()

	obj.Name("NetAllocCount").Int(int(snap.NetAllocCount))
	flags := obj.Name("Flags").Object()
	flags.Name("Empty").Bool(snap.Flags.Has(tracer.FlagEmpty))
	flags.Name("Overflow").Bool(snap.Flags.Has(tracer.FlagOverflow))
	flags.End()
	obj.Name("UnusedNodes").Int(int(snap.UnusedNodes))
	obj.Name("UsedNodes").Int(int(snap.UsedNodes))

	banks := obj.Name("Banks").Array()
	for id := 0; id < len(usage) || id < len(snap.BankBytes); id++ {
		bank := banks.Object()
		bank.Name("ID").Int(id)
		bank.Name("Name").String(bankName(usage, id))
		if id < len(usage) {
			bank.Name("BlockSize").Int(int(usage[id].BlockSize))
			bank.Name("PoolSize").Int(int(usage[id].PoolSize))
			bank.Name("UsagePercent").Int(int(usage[id].Percent))
		}
		if id < len(snap.BankBytes) {
			bank.Name("TracedBytes").Int(int(snap.BankBytes[id]))
		}
		bank.End()
	}
	banks.End()

	repeats := obj.Name("Repeats").Array()
	for _, r := range snap.Repeats {
		item := repeats.Object()
		siteJSON(&item, r.Site)
		item.Name("Count").Int(int(r.Count))
		item.End()
	}
	repeats.End()

	refree := obj.Name("DoubleFrees").Array()
	for _, site := range snap.DoubleFrees {
		item := refree.Object()
		siteJSON(&item, site)
		item.End()
	}
	refree.End()

	obj.End()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
