package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/gamenoti/server"
	"github.com/hrygo/gamenoti/server/service/alarm"
	"github.com/hrygo/gamenoti/server/timezone"
)

func newExtractCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract notification times from text or screenshots",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")

	textCmd := &cobra.Command{
		Use:   "text [text...]",
		Short: "Extract times from text; reads stdin when no text is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "read stdin")
				}
				text = string(data)
			}

			svc, loc, closeFn, err := newCLIService(false)
			if err != nil {
				return err
			}
			defer closeFn()

			result := svc.ExtractFromText(cmd.Context(), text)
			return printResults(cmd.OutOrStdout(), asJSON, loc, []alarm.BatchItem{{Name: "text", Result: result}})
		},
	}

	imageCmd := &cobra.Command{
		Use:   "image <file>...",
		Short: "Run OCR on screenshots and extract times",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			images := make([]alarm.Image, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return errors.Wrapf(err, "read %s", path)
				}
				images = append(images, alarm.Image{
					Name:     filepath.Base(path),
					MimeType: http.DetectContentType(data),
					Data:     data,
				})
			}

			svc, loc, closeFn, err := newCLIService(true)
			if err != nil {
				return err
			}
			defer closeFn()

			items := svc.ExtractFromImages(cmd.Context(), images)
			if err := printResults(cmd.OutOrStdout(), asJSON, loc, items); err != nil {
				return err
			}
			for _, item := range items {
				if item.Err != nil {
					return errors.New("some images could not be processed")
				}
			}
			return nil
		},
	}

	cmd.AddCommand(textCmd, imageCmd)
	return cmd
}

func newCLIService(withOCR bool) (*alarm.Service, *time.Location, func(), error) {
	p, err := loadProfile()
	if err != nil {
		return nil, nil, nil, err
	}
	if !withOCR {
		p.OCREnabled = false
	}
	loc, err := p.Location()
	if err != nil {
		return nil, nil, nil, err
	}

	svc, textCache, _, err := server.NewAlarmService(p, slog.Default())
	if err != nil {
		return nil, nil, nil, err
	}
	return svc, loc, textCache.Close, nil
}

type cliResult struct {
	Name   string        `json:"name"`
	Result *alarm.Result `json:"result"`
	Error  string        `json:"error,omitempty"`
}

func printResults(w io.Writer, asJSON bool, loc *time.Location, items []alarm.BatchItem) error {
	if asJSON {
		out := make([]cliResult, len(items))
		for i, item := range items {
			out[i] = cliResult{Name: item.Name, Result: item.Result}
			if item.Err != nil {
				out[i].Error = item.Err.Error()
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}

	for _, item := range items {
		if len(items) > 1 {
			fmt.Fprintf(w, "%s:\n", item.Name)
		}
		switch {
		case item.Err != nil:
			fmt.Fprintf(w, "  error: %v\n", item.Err)
		case item.Result.Len() == 0:
			fmt.Fprintln(w, "  no time found")
		default:
			for i, c := range item.Result.Candidates {
				display := c.DisplayText
				if display == "" {
					display = "now"
				}
				fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, display, timezone.FormatNotificationTime(c.NotificationTime, loc))
			}
		}
	}
	return nil
}
