package report

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/metabopair/internal/analysis"
	"github.com/KaramelBytes/metabopair/internal/comparison"
)

var fixture = []string{
	"subject,challenge,challenge_time,Metabolite,super_pathway,sub_pathway,glucose,lactate",
	"1,ogtt,0,glucose,Carbohydrate,Glycolysis,5,1",
	"2,ogtt,0,lactate,,,6,1",
	"3,ogtt,0,,,,7,1",
	"1,sld,240,,,,6,2",
	"2,sld,240,,,,8,2",
	"3,sld,240,,,,9,2",
	"1,oltt,240,,,,5,1",
	"2,oltt,240,,,,6,1",
}

func buildReport(t *testing.T, lines []string) *Report {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	tbl, err := analysis.LoadCSV(p, analysis.DefaultOptions())
	require.NoError(t, err)
	s, err := analysis.Validate(tbl, analysis.DefaultColumns())
	require.NoError(t, err)
	tester, err := comparison.New(comparison.DefaultOptions())
	require.NoError(t, err)
	defer tester.Close()
	run, err := tester.Run(context.Background(), tbl, s)
	require.NoError(t, err)
	return Assemble(run, tbl, s)
}

const wantCSV = `Metabolite,Super_Pathway,Sub_Pathway,Mean_Diff(SLD_OGTT),pvalue(SLD_OGTT),Mean_Diff(OLTT_OGTT),pvalue(OLTT_OGTT),Significant_Response
super_pathway,N/A,N/A,NaN,NaN,NaN,NaN,False
sub_pathway,N/A,N/A,NaN,NaN,NaN,NaN,False
glucose,Carbohydrate,Glycolysis,1.666667,0.0377495514,0.0,NaN,False
lactate,,,1.0,0.0,0.0,NaN,True
`

func TestAssemble_Records(t *testing.T) {
	rep := buildReport(t, fixture)
	require.Equal(t, "OGTT", rep.Reference)
	require.Equal(t, []string{"SLD", "OLTT"}, rep.Treatments)
	require.Len(t, rep.Records, 4)

	got := make([][]string, len(rep.Records))
	for i, rec := range rep.Records {
		got[i] = rec.Fields()
	}
	want := [][]string{
		{"super_pathway", "N/A", "N/A", "NaN", "NaN", "NaN", "NaN", "False"},
		{"sub_pathway", "N/A", "N/A", "NaN", "NaN", "NaN", "NaN", "False"},
		{"glucose", "Carbohydrate", "Glycolysis", "1.666667", "0.0377495514", "0.0", "NaN", "False"},
		{"lactate", "", "", "1.0", "0.0", "0.0", "NaN", "True"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, rep.SignificantCount())
}

func TestAssemble_NoMetadataColumn(t *testing.T) {
	lines := append([]string{"subject,challenge,challenge_time,label,glucose"},
		"1,ogtt,0,glucose,1", "2,ogtt,0,,2", "1,sld,240,,2", "2,sld,240,,4")
	rep := buildReport(t, lines)
	require.Len(t, rep.Records, 1)
	require.Equal(t, NotAvailable, rep.Records[0].SuperPathway)
	require.Equal(t, NotAvailable, rep.Records[0].SubPathway)
}

func TestFormat(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"integral mean", FormatMeanDiff(3), "3.0"},
		{"six decimals", FormatMeanDiff(0.1234567), "0.123457"},
		{"negative rounds to zero", FormatMeanDiff(-1e-7), "-0.0"},
		{"large mean", FormatMeanDiff(1234567), "1234567.0"},
		{"small p uses exponent", FormatPValue(1.23456789012345e-5), "1.23457e-05"},
		{"ten decimals", FormatPValue(0.18849732879931103), "0.1884973288"},
		{"tiny p rounds to zero", FormatPValue(1e-12), "0.0"},
		{"missing", FormatPValue(math.NaN()), MissingMarker},
		{"boundary plain", formatFloat(0.0001), "0.0001"},
		{"huge", formatFloat(1e16), "1e+16"},
		{"true", FormatBool(true), "True"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.got)
		})
	}
	require.Equal(t, 2.67, Round(2.675, 2))
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	rep := buildReport(t, fixture)
	path := filepath.Join(t.TempDir(), "results", DefaultFileName)
	require.NoError(t, WriteCSV(path, rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, wantCSV, string(data))
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err), "temp file must be renamed away")

	back, err := ReadCSV(path)
	require.NoError(t, err)
	require.Equal(t, rep.Header(), back.Header())
	again, err := EncodeCSV(back)
	require.NoError(t, err)
	require.Equal(t, wantCSV, string(again))
}

func TestReadCSV_RejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644))
	_, err := ReadCSV(path)
	require.ErrorContains(t, err, "unexpected header")
}

func TestWriteCSV_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	rep := buildReport(t, fixture)
	err := WriteCSV(filepath.Join(blocker, "out.csv"), rep)
	require.Error(t, err)
	require.Len(t, rep.Records, 4, "report stays usable after a failed write")
}

func TestSQLiteSink_WriteAndRead(t *testing.T) {
	rep := buildReport(t, fixture)
	sink, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "results.db"))
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	run := RunInfo{ID: "run-1", Input: "in.csv", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, sink.Write(ctx, run, rep))
	require.Error(t, sink.Write(ctx, run, rep), "run ids are unique")

	rows, err := sink.Results(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 8)

	g := rows[4]
	require.Equal(t, 2, g.Position)
	require.Equal(t, "glucose", g.Metabolite)
	require.Equal(t, "SLD", g.Treatment)
	require.Equal(t, "OGTT", g.Reference)
	require.InDelta(t, 1.666667, g.MeanDiff, 1e-12)
	require.InDelta(t, 0.0377495514, g.P, 1e-12)
	require.True(t, math.IsNaN(rows[5].P), "missing p-values are stored as NULL")
	require.Equal(t, "OLTT", rows[5].Treatment)
	require.True(t, rows[6].Significant)

	none, err := sink.Results(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRenderTable(t *testing.T) {
	rep := buildReport(t, fixture)
	var buf bytes.Buffer
	RenderTable(&buf, rep, RenderOptions{OnlySignificant: true})
	out := buf.String()
	require.Contains(t, out, "lactate")
	require.Contains(t, out, "Mean_Diff(SLD_OGTT)")
	require.NotContains(t, out, "glucose")

	buf.Reset()
	RenderTable(&buf, rep, RenderOptions{Limit: 2})
	require.Contains(t, buf.String(), "2 more rows")
}

func TestSummary(t *testing.T) {
	s := buildReport(t, fixture).Summary()
	require.Contains(t, s, "Metabolites tested: 4")
	require.Contains(t, s, "Significant (p < 7.9e-05): 1")
	require.Contains(t, s, "SLD vs OGTT: 2 tested, 1 below threshold")
	require.Contains(t, s, "OLTT vs OGTT: 0 tested, 0 below threshold")
}
