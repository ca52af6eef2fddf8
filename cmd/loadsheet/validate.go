package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/table"
)

type validateOptions struct {
	input   string
	mapping []string
	kinds   []string
	suffix  bool
	site    string
	outDir  string
}

func (o *validateOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "Load sheet CSV (required)")
	f.StringSliceVar(&o.mapping, "map", nil, "Column mapping override role=column, e.g. field=AddToSkyspark")
	f.StringSliceVar(&o.kinds, "kind", nil, "Point kind override type=Kind, e.g. 'numeric point=Number'")
	f.BoolVar(&o.suffix, "suffix", false, "Sheet uses ontology suffixes (enables stage 5)")
	f.StringVar(&o.site, "site", "", "Keep only rows where column=value")
	f.StringVar(&o.outDir, "out-dir", "", "Write offending and cleaned rows of a failed stage here")
	_ = cmd.MarkFlagRequired("input")
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the validation stages over a load sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := root.start(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			_, err = runValidate(cmd.Context(), cmd.OutOrStdout(), app.Service, opts)
			return err
		},
	}
	opts.addFlags(cmd)
	return cmd
}

// parseAssignments splits "key=value" pairs.
func parseAssignments(flag string, pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, withCode(exitUsage, fmt.Errorf("invalid --%s %q: want key=value", flag, p))
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// prepare opens a session for the sheet and applies the mapping, kinds and
// site filter before normalizing it.
func prepare(ctx context.Context, svc *core.Service, opts validateOptions) (string, error) {
	mapping, err := parseAssignments("map", opts.mapping)
	if err != nil {
		return "", err
	}
	kinds, err := parseAssignments("kind", opts.kinds)
	if err != nil {
		return "", err
	}
	var site *core.SiteFilter
	if opts.site != "" {
		col, val, ok := strings.Cut(opts.site, "=")
		if !ok {
			return "", withCode(exitUsage, fmt.Errorf("invalid --site %q: want column=value", opts.site))
		}
		site = &core.SiteFilter{Column: col, Value: val}
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return "", withCode(exitUsage, err)
	}
	defer f.Close()

	info, err := svc.CreateSession(ctx, filepath.Base(opts.input), f)
	if err != nil {
		return "", err
	}

	upd := core.MappingUpdate{Mapping: core.Mapping{}, SuffixUsed: opts.suffix, Site: site}
	for role, col := range mapping {
		upd.Mapping[core.Role(role)] = col
	}
	if _, err := svc.SetMapping(ctx, info.ID, upd); err != nil {
		return "", withCode(exitUsage, err)
	}
	if len(kinds) > 0 {
		if _, err := svc.SetKinds(ctx, info.ID, core.KindAssignments(kinds)); err != nil {
			return "", withCode(exitUsage, err)
		}
	}
	if _, err := svc.Normalize(ctx, info.ID); err != nil {
		return "", err
	}
	return info.ID, nil
}

// runValidate validates the sheet and prints one line per stage. A failed
// stage returns an exitFailed error after its rows are written to outDir.
func runValidate(ctx context.Context, out io.Writer, svc *core.Service, opts validateOptions) (string, error) {
	id, err := prepare(ctx, svc, opts)
	if err != nil {
		return "", err
	}
	res, err := svc.Validate(ctx, id)
	if err != nil {
		return "", err
	}

	var failed *core.StageReport
	for _, rep := range res.Reports {
		switch {
		case rep.Skipped:
			fmt.Fprintf(out, "%s  skipped\n", rep.Stage)
		case rep.Passed:
			fmt.Fprintf(out, "%s  passed\n", rep.Stage)
		default:
			failed = rep
			fmt.Fprintf(out, "%s  FAILED  %s (%d offending rows)\n", rep.Stage, rep.Failure.Label, rep.Failure.Total)
		}
	}

	if failed != nil {
		if opts.outDir != "" {
			if err := writeFailure(svc, id, failed.Stage, opts.outDir, out); err != nil {
				return "", err
			}
		}
		return "", withCode(exitFailed, fmt.Errorf("stage %s failed: %s", failed.Stage, failed.Failure.Label))
	}

	if res.Warnings != nil && res.Warnings.HasWarnings() {
		fmt.Fprintf(out, "warning: %s (%d devices)\n", res.Warnings.Message, len(res.Warnings.Devices))
	}
	return id, nil
}

func writeFailure(svc *core.Service, id string, stage core.Stage, dir string, out io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, get := range []func(string, core.Stage) (*core.Extract, error){svc.OffendingRows, svc.CleanedRows} {
		ext, err := get(id, stage)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, ext.Filename)
		if err := writeTable(path, ext.Table); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	return nil
}

func writeTable(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := table.WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
