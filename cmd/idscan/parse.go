package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/id-scanner/internal/idparser"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

type parseOutput struct {
	Record     *models.ParsedIDRecord `json:"record"`
	Validation idparser.Validation    `json:"validation"`
	FullName   string                 `json:"fullName,omitempty"`
}

// readRaw takes the scan text from the first argument, or from stdin when
// the argument is absent or "-"
func readRaw(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func sourceFlag(cmd *cobra.Command) (types.ScanSource, error) {
	s, _ := cmd.Flags().GetString("source")
	switch source := types.ScanSource(strings.ToLower(s)); source {
	case types.SourceQR, types.SourceManual, types.SourceLiveScan:
		return source, nil
	default:
		return "", fmt.Errorf("unknown source %q: use qr, manual or live_scan", s)
	}
}

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [text|-]",
		Short: "Parses raw scanned text into an ID record.",
		Long:  "Parses raw scanned text into an ID record and prints it with its validation as JSON. Reads stdin when no text is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := sourceFlag(cmd)
			if err != nil {
				return err
			}
			raw, err := readRaw(cmd, args)
			if err != nil {
				return err
			}

			record := idparser.Parse(raw, source)
			out := parseOutput{
				Record:     record,
				Validation: idparser.Validate(record, false),
				FullName:   idparser.FormatName(deref(record.FirstName), deref(record.MiddleInitial), deref(record.LastName)),
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringP("source", "s", string(types.SourceQR), "How the text was captured: qr, manual, live_scan")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <idNumber>...",
		Short: "Prints the ID type inferred from each ID number.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, number := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", number, idparser.Classify(number))
			}
			return nil
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

