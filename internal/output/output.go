package output

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"github.com/dshills/privfilter/internal/report"
)

// Formats lists the supported report formats.
var Formats = []string{"text", "json", "markdown", "sarif"}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *report.Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, errors.WithHintf(errors.Newf("unsupported output format: %s", format),
			"supported formats: text, json, markdown, sarif")
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
// Text output to a file is never colored.
func WriteReport(rep *report.Report, format, outPath string, useColor bool) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
		if tw, ok := writer.(*TextWriter); ok {
			tw.Color = useColor
		}
	}

	return writer.Write(w, rep)
}

// paint returns a color that is forced on or off regardless of terminal
// detection.
func paint(on bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if on {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
