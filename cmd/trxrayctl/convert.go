package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robotomize/go-testrail-xray/internal/fs"
	"github.com/robotomize/go-testrail-xray/internal/xray"
)

var errMissingInput = errors.New("input file is required: -i <file.xml>")

var (
	convertInputFlag    string
	convertOutputFlag   string
	convertEndpointFlag string
	convertColumnsFlag  []string
)

func init() {
	convertCmd.Flags().StringVarP(
		&convertInputFlag,
		"input",
		"i",
		"",
		"interchange XML file: -i export.xml",
	)
	convertCmd.Flags().StringVarP(
		&convertOutputFlag,
		"output",
		"o",
		"",
		"xray csv file, <input>.csv by default",
	)
	convertCmd.Flags().StringVarP(
		&convertEndpointFlag,
		"endpoint",
		"e",
		"",
		"address prepended to attachment links: -e https://example.testrail.io/",
	)
	convertCmd.Flags().StringSliceVarP(
		&convertColumnsFlag,
		"columns",
		"",
		nil,
		"xray csv columns, all when empty: --columns Action,Result",
	)

	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:          "convert",
	Long:         "Convert an exported XML file to the Xray CSV format",
	Short:        "xml to xray csv",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if convertInputFlag == "" {
			return errMissingInput
		}

		columns, err := xray.SelectColumns(convertColumnsFlag...)
		if err != nil {
			return fmt.Errorf("xray.SelectColumns: %w", err)
		}

		data, err := os.ReadFile(convertInputFlag)
		if err != nil {
			return fmt.Errorf("os.ReadFile: %w", err)
		}

		output := convertOutputFlag
		if output == "" {
			output = strings.TrimSuffix(convertInputFlag, filepath.Ext(convertInputFlag)) + ".csv"
		}

		var buf bytes.Buffer
		table, err := xray.Convert(
			bytes.NewReader(data), &buf,
			xray.WithEndpoint(convertEndpointFlag),
			xray.WithColumns(columns...),
		)
		if err != nil {
			return fmt.Errorf("xray.Convert: %w", err)
		}

		err = fs.WriteFile(
			output, func(w io.Writer) error {
				_, err := io.Copy(w, &buf)
				return err
			},
		)
		if err != nil {
			return fmt.Errorf("fs.WriteFile %s: %w", output, err)
		}

		_, _ = fmt.Fprintf(
			cmd.OutOrStdout(), "Converted %d test cases into %d rows: %s\n", table.Cases, len(table.Rows), output,
		)

		return nil
	},
}
