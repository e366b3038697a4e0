package catalog

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"

	perr "ottscout/internal/platform/errors"

	"github.com/pelletier/go-toml/v2"
)

// policyFile is the on-disk TOML shape; empty fields keep the defaults
type policyFile struct {
	Targets         []string          `toml:"targets"`
	Aliases         map[string]string `toml:"aliases"`
	IndianLanguages []string          `toml:"indian_languages"`
	RegionOrder     []string          `toml:"region_order"`
	PlatformOrder   []string          `toml:"platform_order"`
}

// Load returns the default policy overlaid with the TOML file at path
// An empty path or a missing file yields the defaults
func Load(path string) (Policy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Policy{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open policy file %s", path)
	}
	defer file.Close()
	return Decode(file)
}

// Decode reads a TOML policy from r and overlays it on the defaults
func Decode(r io.Reader) (Policy, error) {
	var pf policyFile
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pf); err != nil {
		return Policy{}, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "parse policy file")
	}

	p := Default()
	if len(pf.Targets) > 0 {
		p.Targets = toPlatforms(pf.Targets)
		for name, pl := range p.Aliases {
			if !slices.Contains(p.Targets, pl) {
				delete(p.Aliases, name)
			}
		}
	}
	for name, target := range pf.Aliases {
		p.Aliases[strings.ToLower(strings.TrimSpace(name))] = Platform(strings.TrimSpace(target))
	}
	if len(pf.IndianLanguages) > 0 {
		p.IndianLanguages = pf.IndianLanguages
	}
	if len(pf.RegionOrder) > 0 {
		p.RegionOrder = make([]Region, 0, len(pf.RegionOrder))
		for _, r := range pf.RegionOrder {
			p.RegionOrder = append(p.RegionOrder, ParseRegion(r))
		}
	}
	if len(pf.PlatformOrder) > 0 {
		p.PlatformOrder = toPlatforms(pf.PlatformOrder)
	}
	p = p.index()
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Encode writes p as TOML, the same shape Load accepts
func Encode(w io.Writer, p Policy) error {
	pf := policyFile{
		Aliases:         make(map[string]string, len(p.Aliases)),
		IndianLanguages: p.IndianLanguages,
	}
	for _, t := range p.Targets {
		pf.Targets = append(pf.Targets, string(t))
	}
	for k, v := range p.Aliases {
		pf.Aliases[k] = string(v)
	}
	for _, r := range p.RegionOrder {
		pf.RegionOrder = append(pf.RegionOrder, string(r))
	}
	for _, pl := range p.PlatformOrder {
		pf.PlatformOrder = append(pf.PlatformOrder, string(pl))
	}
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(pf)
}

func toPlatforms(xs []string) []Platform {
	out := make([]Platform, 0, len(xs))
	for _, s := range xs {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, Platform(s))
		}
	}
	return out
}
