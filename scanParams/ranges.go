package main

import (
	"fmt"
	"strconv"
	"strings"

	hillipop "github.com/next-exp/hillipop_go/pkg"
)

// RangesCmd writes a multipole-range file. Every list holds one lmin:lmax
// range per cross-frequency or per cross-spectrum.
type RangesCmd struct {
	Out string   `arg:"" help:"Output HDF5 file"`
	TT  []string `name:"tt" required:"" help:"TT ranges, lmin:lmax"`
	EE  []string `name:"ee" required:"" help:"EE ranges, lmin:lmax"`
	BB  []string `name:"bb" required:"" help:"BB ranges, lmin:lmax"`
	TE  []string `name:"te" required:"" help:"TE ranges, lmin:lmax"`
	ET  []string `name:"et" help:"ET ranges, lmin:lmax (default: TE ranges)"`
}

func parseRanges(values []string) ([][2]int, error) {
	ranges := make([][2]int, len(values))
	for i, v := range values {
		lo, hi, found := strings.Cut(v, ":")
		if !found {
			return nil, fmt.Errorf("invalid range %q, expected lmin:lmax", v)
		}
		lmin, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid lmin in %q: %w", v, err)
		}
		lmax, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid lmax in %q: %w", v, err)
		}
		if lmin < 0 || lmax < lmin {
			return nil, fmt.Errorf("invalid range %q", v)
		}
		ranges[i] = [2]int{lmin, lmax}
	}
	return ranges, nil
}

func (r *RangesCmd) Run() error {
	if len(r.ET) == 0 {
		r.ET = r.TE
	}
	lists := make([][][2]int, 0, 5)
	for _, values := range [][]string{r.TT, r.EE, r.BB, r.TE, r.ET} {
		ranges, err := parseRanges(values)
		if err != nil {
			return err
		}
		lists = append(lists, ranges)
	}
	if err := hillipop.WriteMultipoleRanges(r.Out, lists[0], lists[1], lists[2], lists[3], lists[4]); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Multipole ranges written to %s", r.Out), "ranges")
	return nil
}
