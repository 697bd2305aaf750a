// Command shapecli is an interactive harness for the text shaper: it loads
// a font, reads lines of text, shapes them and prints the resulting glyph
// run. Useful for inspecting a font's shaping behavior without writing a
// test program.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/npillmayer/textshape/ot"
	"github.com/npillmayer/textshape/otquery"
	"github.com/npillmayer/textshape/otshape"
	"github.com/pterm/pterm"
)

// tracer traces with key 'textshape.cli'
func tracer() tracing.Trace {
	return tracing.Select("textshape.cli")
}

func main() {
	initDisplay()

	// set up logging
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter":        "go",
		"trace.textshape.shaper": "Info",
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Println("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())

	// command line flags
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	fontname := flag.String("font", "", "Font to load")
	direction := flag.String("dir", "", "Direction [ltr|rtl|ttb|btt], guessed if empty")
	features := flag.String("features", "", "Comma-separated feature tags, '-' prefix disables (e.g. liga,-kern)")
	flag.Parse()
	tracer().SetTraceLevel(tracing.LevelError) // will set the correct level later
	pterm.Info.Println("Welcome to the shaping CLI")

	if *fontname == "" {
		pterm.Error.Println("no font given; use -font <path>")
		os.Exit(2)
	}
	data, err := os.ReadFile(*fontname)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(3)
	}
	face, err := otquery.FaceFromBinary(data)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(3)
	}
	pterm.Info.Println(fmt.Sprintf("loaded font %s (%d units/em)", *fontname, face.UnitsPerEm()))

	repl, err := readline.New("shape > ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(4)
	}

	switch *tlevel {
	case "Debug":
		tracer().SetTraceLevel(tracing.LevelDebug)
	case "Info":
		tracer().SetTraceLevel(tracing.LevelInfo)
	case "Error":
		tracer().SetTraceLevel(tracing.LevelError)
	default:
		tracer().Errorf("Invalid trace level: %s", *tlevel)
		os.Exit(5)
	}

	userFeatures := parseFeatures(*features)
	pterm.Info.Println("Quit with <ctrl>D")
	for {
		line, err := repl.Readline()
		if err != nil { // io.EOF
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		shapeLine(face, line, *direction, userFeatures)
	}
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

func parseFeatures(spec string) []otshape.Feature {
	if spec == "" {
		return nil
	}
	var features []otshape.Feature
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value := uint32(1)
		if strings.HasPrefix(part, "-") {
			value = 0
			part = part[1:]
		}
		features = append(features, otshape.Feature{
			Tag:   ot.T(part),
			Value: value,
			Start: otshape.FeatureGlobalStart,
			End:   otshape.FeatureGlobalEnd,
		})
	}
	return features
}

func shapeLine(face *otquery.Face, text, direction string, features []otshape.Feature) {
	buf := otshape.NewBuffer()
	buf.AddString(text)
	switch direction {
	case "ltr":
		buf.Props.Direction = otshape.LeftToRight
	case "rtl":
		buf.Props.Direction = otshape.RightToLeft
	case "ttb":
		buf.Props.Direction = otshape.TopToBottom
	case "btt":
		buf.Props.Direction = otshape.BottomToTop
	}
	if !otshape.Shape(face, buf, features) {
		pterm.Error.Println("shaping failed")
		return
	}
	infos := buf.GlyphInfos()
	positions := buf.GlyphPositions()
	rows := pterm.TableData{{"#", "glyph", "cluster", "x-adv", "y-adv", "x-off", "y-off"}}
	for i := range infos {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%d", infos[i].Glyph),
			fmt.Sprintf("%d", infos[i].Cluster),
			fmt.Sprintf("%d", positions[i].XAdvance),
			fmt.Sprintf("%d", positions[i].YAdvance),
			fmt.Sprintf("%d", positions[i].XOffset),
			fmt.Sprintf("%d", positions[i].YOffset),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		tracer().Errorf(err.Error())
	}
}
