package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/table"
)

type exportOptions struct {
	validateOptions

	facetsFile   string
	facetsColumn string
	outColumn    string
	slotColumn   string

	units      []string
	enums      []string
	facetNames []string

	metaMode       string
	metaFile       string
	deviceColumn   string
	mechTypeColumn string
	locationColumn string
	areaColumn     string

	output string
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Validate a load sheet, resolve its facets and write the final export",
		Long: "Runs validation, joins facets from the sheet or --facets-file, applies the\n" +
			"suggested unit, enum and facet-name mappings plus any overrides, optionally\n" +
			"joins device metadata, and writes the export CSV.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := root.start(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return runExport(cmd.Context(), cmd.OutOrStdout(), app.Service, opts)
		},
	}
	opts.addFlags(cmd)

	f := cmd.Flags()
	f.StringVar(&opts.facetsFile, "facets-file", "", "Facets CSV keyed by slot path (default: read facets from the sheet)")
	f.StringVar(&opts.facetsColumn, "facets-column", "facets", "Column holding facet blobs")
	f.StringVar(&opts.outColumn, "out-column", "", "Column holding OUT values")
	f.StringVar(&opts.slotColumn, "slot-column", "slotpath", "Slot path column of --facets-file")
	f.StringSliceVar(&opts.units, "unit", nil, "Unit override input=category/unitId")
	f.StringSliceVar(&opts.enums, "enum", nil, "Enum override field|trueText|falseText=trueKey/falseKey")
	f.StringSliceVar(&opts.facetNames, "facet-name", nil, "Facet-name override name=option (minVal, maxVal, precision, covTolerance, -)")
	f.StringVar(&opts.metaMode, "device-meta", "", "Join device metadata: initial or upload")
	f.StringVar(&opts.metaFile, "device-file", "", "Device metadata CSV for --device-meta=upload")
	f.StringVar(&opts.deviceColumn, "device-column", "", "Device column of the metadata source")
	f.StringVar(&opts.mechTypeColumn, "mechanical-type-column", "", "Mechanical type column of the metadata source")
	f.StringVar(&opts.locationColumn, "location-column", "", "Location column of the metadata source")
	f.StringVar(&opts.areaColumn, "area-column", "", "Area column of the metadata source")
	f.StringVarP(&opts.output, "output", "o", core.ExportFilename, "Export file")
	return cmd
}

func runExport(ctx context.Context, out io.Writer, svc *core.Service, opts exportOptions) error {
	units, err := parseUnits(opts.units)
	if err != nil {
		return err
	}
	enums, err := parseEnums(opts.enums)
	if err != nil {
		return err
	}
	names, err := parseAssignments("facet-name", opts.facetNames)
	if err != nil {
		return err
	}

	id, err := runValidate(ctx, out, svc, opts.validateOptions)
	if err != nil {
		return err
	}

	req := core.FacetRequest{
		Source:       core.SourceInitial,
		FacetsColumn: opts.facetsColumn,
		OutColumn:    opts.outColumn,
	}
	if opts.facetsFile != "" {
		upload, err := readSheet(opts.facetsFile)
		if err != nil {
			return err
		}
		req.Source = core.SourceUpload
		req.Upload = upload
		req.UploadSlotColumn = opts.slotColumn
	}
	join, err := svc.JoinFacets(ctx, id, req)
	if err != nil {
		return withCode(exitUsage, err)
	}
	fmt.Fprintf(out, "facets: %d matched, %d missing\n", join.Matched, join.Missing)

	if _, err := svc.SetUnitMappings(ctx, id, units); err != nil {
		return withCode(exitUsage, err)
	}
	for _, phase := range []core.MappingPhase{core.PhaseEnums, core.PhaseFacetNames} {
		if _, err := svc.AdvancePhase(ctx, id, phase); err != nil {
			return err
		}
	}
	if _, err := svc.SetEnumMappings(ctx, id, enums); err != nil {
		return withCode(exitUsage, err)
	}
	if _, err := svc.SetFacetNameMappings(ctx, id, names); err != nil {
		return withCode(exitUsage, err)
	}
	if err := reportUnresolved(out, svc, id); err != nil {
		return err
	}

	if _, err := svc.Finalize(ctx, id); err != nil {
		return err
	}

	if opts.metaMode != "" {
		if err := joinMeta(ctx, out, svc, id, opts); err != nil {
			return err
		}
	}

	ext, err := svc.Export(ctx, id)
	if err != nil {
		return err
	}
	if err := writeTable(opts.output, ext.Table); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%d rows)\n", opts.output, ext.Table.Len())
	return nil
}

func joinMeta(ctx context.Context, out io.Writer, svc *core.Service, id string, opts exportOptions) error {
	req := core.DeviceMetaRequest{
		Mode:                 core.DeviceMetaMode(opts.metaMode),
		DeviceColumn:         opts.deviceColumn,
		MechanicalTypeColumn: opts.mechTypeColumn,
		LocationColumn:       opts.locationColumn,
		AreaColumn:           opts.areaColumn,
	}
	if opts.metaFile != "" {
		upload, err := readSheet(opts.metaFile)
		if err != nil {
			return err
		}
		req.Upload = upload
	}
	view, err := svc.JoinDeviceMeta(ctx, id, req)
	if err != nil {
		return withCode(exitUsage, err)
	}
	fmt.Fprintf(out, "device metadata: %d devices matched, %d missing\n",
		len(view.Coverage.Matched), len(view.Coverage.Missing))
	return nil
}

// reportUnresolved lists units and enum triples still without a mapping.
func reportUnresolved(out io.Writer, svc *core.Service, id string) error {
	uv, err := svc.UnitMappings(id)
	if err != nil {
		return err
	}
	for _, u := range uv.Units {
		if u.Kode == "" {
			fmt.Fprintf(out, "unresolved unit %q (best confidence %d)\n", u.Input, u.Confidence)
		}
	}
	ev, err := svc.EnumMappings(id)
	if err != nil {
		return err
	}
	for _, e := range ev.Triples {
		if !e.Effective.Complete() {
			fmt.Fprintf(out, "unresolved enum %q\n", e.Key)
		}
	}
	return nil
}

func readSheet(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	defer f.Close()
	return core.ParseUpload(f)
}

// parseUnits parses "input=category/unitId" overrides. A category of "-"
// excludes the unit.
func parseUnits(pairs []string) (map[string]core.UnitMapping, error) {
	raw, err := parseAssignments("unit", pairs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.UnitMapping, len(raw))
	for in, v := range raw {
		cat, id, _ := strings.Cut(v, "/")
		out[in] = core.UnitMapping{Category: strings.TrimSpace(cat), UnitID: strings.TrimSpace(id)}
	}
	return out, nil
}

// parseEnums parses "field|trueText|falseText=trueKey/falseKey" overrides.
func parseEnums(pairs []string) (map[string]core.EnumKeys, error) {
	out := make(map[string]core.EnumKeys, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		parts := strings.Split(k, "|")
		tk, fk, keysOK := strings.Cut(v, "/")
		if !ok || !keysOK || len(parts) != 3 {
			return nil, withCode(exitUsage, fmt.Errorf("invalid --enum %q: want field|trueText|falseText=trueKey/falseKey", p))
		}
		out[core.TripleKey(parts[0], parts[1], parts[2])] = core.EnumKeys{TrueKey: tk, FalseKey: fk}
	}
	return out, nil
}
