package prep

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/jsdoublel/treestat/internal/schema"
	"github.com/jsdoublel/treestat/internal/stats"
)

var ErrNothingToPlot = errors.New("nothing to plot")

var plotFillColor = color.RGBA{R: 37, G: 150, B: 190, A: 255}

const (
	plotH = 4 * vg.Inch
	plotW = 6 * vg.Inch

	histBins = 50
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Writes version, declared counts and the mutation catalog breakdown
func WriteMetadataSummary(w io.Writer, meta *schema.Metadata) error {
	aa, nt := meta.CountMutations()
	var b strings.Builder
	fmt.Fprintf(&b, "version: %s\n", meta.Version)
	fmt.Fprintf(&b, "declared nodes: %d\n", meta.TotalNodes)
	fmt.Fprintf(&b, "declared tips: %d\n", meta.Config.NumTips)
	fmt.Fprintf(&b, "genes: %d\n", len(meta.Config.GeneDetails))
	fmt.Fprintf(&b, "mutations: %d (aa: %d, nt: %d)\n", len(meta.Mutations), aa, nt)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return nil
}

// Writes the node statistics. Nothing is written if the summary covers no
// nodes (stats.ErrNoNodes is returned).
func WriteNodeSummary(w io.Writer, s *stats.Summary, meta *schema.Metadata) error {
	mean, err := s.MeanTips()
	if err != nil {
		return err
	}
	view, err := s.InitialView(meta.Config)
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "nodes processed: %d\n", s.Nodes)
	fmt.Fprintf(&b, "node mutations: %d\n", s.Mutations)
	fmt.Fprintf(&b, "leaves: %d\n", s.Leaves)
	fmt.Fprintf(&b, "x_dist range: [%s, %s]\n", formatFloat(s.MinX), formatFloat(s.MaxX))
	fmt.Fprintf(&b, "y range: [%s, %s]\n", formatFloat(s.MinY), formatFloat(s.MaxY))
	if s.Root == nil {
		b.WriteString("root: none\n")
	} else {
		fmt.Fprintf(&b, "root: %s (id %d)\n", s.Root.Name, s.Root.ID)
		fmt.Fprintf(&b, "root mutations: %s\n", describeMutations(meta, s.Root.Mutations))
	}
	if s.ExtraRoots > 0 {
		fmt.Fprintf(&b, "additional roots ignored: %d\n", s.ExtraRoots)
	}
	fmt.Fprintf(&b, "average tips per node: %s\n", strconv.FormatFloat(mean, 'f', 6, 64))
	fmt.Fprintf(&b, "initial view: x=%s y=%s zoom=%s\n",
		formatFloat(view.X), formatFloat(view.Y), formatFloat(view.Zoom))
	keys := make([]string, 0, len(s.MetaValues))
	for k := range s.MetaValues {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "meta %s: %d distinct values\n", k, s.MetaValues[k])
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return nil
}

// ids are resolved against the catalog; unknown ones are written as #id
func describeMutations(meta *schema.Metadata, ids []int) string {
	if len(ids) == 0 {
		return "none"
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		if mut, err := meta.Mutation(id); err == nil {
			names[i] = mut.String()
		} else {
			names[i] = "#" + strconv.Itoa(id)
		}
	}
	return strings.Join(names, ", ")
}

// Write csv of clade label counts to writer.
//
// There are three columns: "scheme", "label", "nodes"; rows are sorted by
// scheme then label.
func WriteCladeCounts(s *stats.Summary, w io.Writer) (err error) {
	schemes := make([]string, 0, len(s.Clades))
	for scheme := range s.Clades {
		schemes = append(schemes, scheme)
	}
	slices.Sort(schemes)
	data := [][]string{{"scheme", "label", "nodes"}}
	for _, scheme := range schemes {
		labels := make([]string, 0, len(s.Clades[scheme]))
		for l := range s.Clades[scheme] {
			labels = append(labels, l)
		}
		slices.Sort(labels)
		for _, l := range labels {
			data = append(data, []string{scheme, l, strconv.Itoa(s.Clades[scheme][l])})
		}
	}
	writer := csv.NewWriter(w)
	defer func() {
		writer.Flush()
		if err == nil {
			err = writer.Error()
		} else if writer.Error() != nil {
			log.Printf("error when flushing output csv, %s", writer.Error())
		}
	}()
	if err = writer.WriteAll(data); err != nil {
		err = fmt.Errorf("%w, %s", ErrWritingFile, err)
		return
	}
	return
}

// Saves a histogram of branch distances to <prefix>.png
func WriteDistanceHistogram(xDists []float64, prefix string) error {
	if len(xDists) == 0 {
		return fmt.Errorf("%w, no branch distances", ErrNothingToPlot)
	}
	p := plot.New()
	p.Title.Text = "Branch distances"
	p.X.Label.Text = "Distance from root (x_dist)"
	p.Y.Label.Text = "Nodes"
	hist, err := plotter.NewHist(plotter.Values(xDists), histBins)
	if err != nil {
		return err
	}
	hist.FillColor = plotFillColor
	p.Add(hist)
	return p.Save(plotW, plotH, fmt.Sprintf("%s.png", prefix))
}
