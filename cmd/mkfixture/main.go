// mkfixture creates a small representative RAMQ XML fixture from a full extract.
// Two-pass: first scans all records to find diverse candidates, then selects the best N.
// Usage: go run ./cmd/mkfixture --in cod_fact.xml --out testdata/ramq/billing_codes-small.xml --records 50
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"

	"github.com/gyeh/ramqload/internal/transform"
	"github.com/gyeh/ramqload/internal/xmltree"
)

func main() {
	in := flag.String("in", "", "input RAMQ XML extract")
	out := flag.String("out", "", "output XML fixture")
	maxRecords := flag.Int("records", 50, "max records to output")
	checkOnly := flag.Bool("check", false, "only print stats, don't write")
	flag.Parse()

	if *in == "" || (*out == "" && !*checkOnly) {
		fmt.Fprintln(os.Stderr, "--in and --out are required")
		os.Exit(1)
	}

	doc := xmltree.NewDocument()
	if err := doc.ReadFromFile(*in); err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}
	root := doc.Root()
	if root == nil {
		fmt.Fprintln(os.Stderr, "input has no root element")
		os.Exit(1)
	}
	entity, ok := transform.ByRoot(root.Tag)
	if !ok {
		fmt.Fprintf(os.Stderr, "unrecognized root element <%s>\n", root.Tag)
		os.Exit(1)
	}
	layout := entity.Layout()
	records := root.FindElements(strings.Join(layout.Path, "/"))

	// Pass 1: bucket records by traits the transformer treats specially.
	type bucket struct {
		name    string
		records []*etree.Element
		want    int
	}
	buckets := []*bucket{
		{name: "no_key", want: 2},
		{name: "closed", want: *maxRecords / 5},
		{name: "nested", want: *maxRecords / 2},
		{name: "general", want: *maxRecords},
	}
	bucketMap := make(map[string]*bucket)
	for _, b := range buckets {
		bucketMap[b.name] = b
	}

	for _, rec := range records {
		var traits []string
		if key := rec.SelectElement(layout.KeyField); key == nil || strings.TrimSpace(key.Text()) == "" {
			traits = append(traits, "no_key")
		}
		if end := rec.SelectElement("df_eff"); end != nil && strings.TrimSpace(end.Text()) != "" {
			traits = append(traits, "closed")
		}
		for _, child := range rec.ChildElements() {
			if strings.HasPrefix(child.Tag, "liste_") && len(child.ChildElements()) > 0 {
				traits = append(traits, "nested")
				break
			}
		}
		if len(traits) == 0 {
			traits = append(traits, "general")
		}
		for _, t := range traits {
			if b := bucketMap[t]; len(b.records) < b.want {
				b.records = append(b.records, rec)
				break
			}
		}
	}
	fmt.Printf("Scanned %d %s records\n", len(records), entity.RecordKind())

	if *checkOnly {
		for _, b := range buckets {
			fmt.Printf("  %-10s %d\n", b.name, len(b.records))
		}
		return
	}

	// Pass 2: merge buckets in priority order, keeping source order within each.
	seen := make(map[*etree.Element]bool)
	var selected []*etree.Element
	for _, b := range buckets {
		for _, rec := range b.records {
			if len(selected) >= *maxRecords {
				break
			}
			if !seen[rec] {
				seen[rec] = true
				selected = append(selected, rec)
			}
		}
	}

	outDoc := etree.NewDocument()
	outDoc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	outRoot := outDoc.CreateElement(root.Tag)
	for _, a := range root.Attr {
		outRoot.CreateAttr(a.FullKey(), a.Value)
	}
	parent := outRoot
	for _, name := range layout.Path[:len(layout.Path)-1] {
		parent = parent.CreateElement(name)
	}
	for _, rec := range selected {
		parent.AddChild(rec.Copy())
	}
	outDoc.Indent(2)
	if err := outDoc.WriteToFile(*out); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d records to %s\n", len(selected), *out)
	for _, b := range buckets {
		fmt.Printf("  %-10s %d\n", b.name, len(b.records))
	}
}
