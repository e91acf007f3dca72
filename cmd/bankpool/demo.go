package main

import (
	"fmt"

	"github.com/QuangTung97/bankpool"
	"github.com/QuangTung97/bankpool/config"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
)

func demo(ctx *cli.Context) error {
	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	format := bankpool.Format(ctx.String(formatFlag.Name))
	if format != bankpool.FormatText && format != bankpool.FormatJSON {
		return errors.Newf("unknown report format %q", format)
	}

	conf := bankpool.FromFile(c)
	conf.Logger = newLogger(ctx)
	p := bankpool.New(conf)
	p.InitAll()

	out := ctx.App.Writer

	ptr := p.Malloc(config.SRAMCCM, 12)
	if ptr.IsNil() {
		fmt.Fprintln(out, "ptr malloc fail")
	} else {
		usage, _ := p.Usage(config.SRAMCCM)
		fmt.Fprintf(out, "ptr malloc ok, addr: %s\n", ptr)
		fmt.Fprintf(out, "ptr memory use info: %d%%\n", usage)
	}

	ptr1 := p.Malloc(config.SRAMCCM, 10)
	if ptr1.IsNil() {
		fmt.Fprintln(out, "ptr1 malloc fail")
	} else {
		usage, _ := p.Usage(config.SRAMCCM)
		fmt.Fprintf(out, "ptr1 malloc ok, addr: %s\n", ptr1)
		fmt.Fprintf(out, "ptr1 memory use info: %d%%\n", usage)
	}

	for i := 0; i < 6; i++ {
		if p.Malloc(config.SRAMEX1, 100).IsNil() {
			fmt.Fprintf(out, "%d malloc fail\n", i)
		}
	}

	refree := ptr
	p.Free(ptr)
	p.Free(refree)

	if err := p.Report(out, format); err != nil {
		return err
	}
	if format == bankpool.FormatText {
		fmt.Fprintf(out, "malloc free count: %d\n", p.LiveAllocationDelta())
	}
	return nil
}
