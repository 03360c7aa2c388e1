package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
	parquetfmt "github.com/ajitpratap0/dta2parquet/pkg/formats/columnar"
	"github.com/ajitpratap0/dta2parquet/pkg/stata"
	"github.com/ajitpratap0/dta2parquet/pkg/storage"
)

var parquetMagic = []byte("PAR1")

func newInspectCommand(stdout io.Writer, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the variable dictionary of a .dta file or a converted Parquet file",
		Long: `inspect prints the variables, types, formats, labels and value labels of a
Stata .dta file as JSON. Given a Parquet file written by dta2parquet it prints
the dictionary stored in the file footer instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile, cmd)
			if err != nil {
				return err
			}
			loc, err := storage.ParseLocation(args[0])
			if err != nil {
				return err
			}
			log, err := newLogger(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store := storage.New(cfg.Storage, log)
			defer store.Close()
			in, err := store.Open(cmd.Context(), loc)
			if err != nil {
				return err
			}
			defer in.Close()

			var dict *stata.Dictionary
			if bytes.HasPrefix(in.Bytes(), parquetMagic) {
				dict, err = footerDictionary(in.Bytes())
			} else {
				dict, err = describe(in.Bytes())
			}
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(dict, "", "  ")
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeEncode, "failed to encode dictionary")
			}
			_, err = fmt.Fprintln(stdout, string(out))
			return err
		},
	}
}

// describe parses the header, descriptors and value labels of a .dta file
func describe(data []byte) (*stata.Dictionary, error) {
	meta, fm, err := stata.ParseMetadata(data)
	if err != nil {
		return nil, err
	}
	tables, err := stata.ParseValueLabels(fm.ValueLabels, meta.Release)
	if err != nil {
		return nil, err
	}
	stata.AttachValueLabels(meta, tables)
	return stata.Describe(meta), nil
}

func footerDictionary(data []byte) (*stata.Dictionary, error) {
	kv, _, err := parquetfmt.ReadMetadata(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	raw, ok := kv[parquetfmt.DictionaryMetadataKey]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeFile, "parquet footer has no %s entry", parquetfmt.DictionaryMetadataKey)
	}
	var dict stata.Dictionary
	if err := json.Unmarshal([]byte(raw), &dict); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecode, "invalid dictionary in parquet footer")
	}
	return &dict, nil
}
