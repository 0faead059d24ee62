// Package cli provides output helpers for the AgroVision command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/agrovision/internal/models"
	"github.com/hyperjump/agrovision/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCropResults writes crop recommendations to w in the given format.
func WriteCropResults(w io.Writer, response *models.CropResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintln(w, "Top crop recommendations")
	for i, rec := range response.Recommendations {
		fmt.Fprintf(w, "%d. %-16s %6.2f%%\n", i+1, utils.Title(rec.Crop), rec.Confidence)
	}
	return nil
}

// WriteDiseaseResult writes a disease detection to w in the given format.
func WriteDiseaseResult(w io.Writer, response *models.DiseaseResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "Disease:    %s\n", response.Disease)
	fmt.Fprintf(w, "Confidence: %.2f%%\n", response.Confidence)
	return nil
}

// WriteAnswer writes a chat answer to w in the given format.
func WriteAnswer(w io.Writer, answer string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, models.ChatResponse{Answer: answer})
	}
	fmt.Fprintln(w, answer)
	return nil
}

// WriteStatus writes server status to w in the given format.
func WriteStatus(w io.Writer, status *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "status:             %s\n", status.Status)
	fmt.Fprintf(w, "crop_classes:       %d   # labels of the crop model\n", status.Crop.Classes)
	fmt.Fprintf(w, "disease_classes:    %d   # classes of the disease model\n", status.Disease.Classes)
	fmt.Fprintf(w, "chat_configured:    %t\n", status.Chat.Configured)
	if status.Chat.Model != "" {
		fmt.Fprintf(w, "chat_model:         %s\n", status.Chat.Model)
	}
	fmt.Fprintf(w, "prediction_log:     %t\n", status.PredictionLog.Enabled)
	if status.PredictionLog.Enabled {
		fmt.Fprintf(w, "crop_predictions:   %d\n", status.PredictionLog.Crop)
		fmt.Fprintf(w, "disease_predictions: %d\n", status.PredictionLog.Disease)
	}
	fmt.Fprintf(w, "disk_usage_bytes:   %d   # models, labels and log on disk\n", status.DiskUsageBytes)
	if len(status.Artifacts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# artifacts")
		for _, a := range status.Artifacts {
			if a.Missing {
				fmt.Fprintf(w, "%-16s %s (missing)\n", a.Name, a.Path)
				continue
			}
			fmt.Fprintf(w, "%-16s %s (%d bytes)\n", a.Name, a.Path, a.Bytes)
		}
	}
	return nil
}

// WriteHistory writes recent predictions to w in the given format.
func WriteHistory(w io.Writer, history *models.HistoryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, history)
	}
	if len(history.Predictions) == 0 {
		fmt.Fprintln(w, "No predictions recorded.")
		return nil
	}
	for _, p := range history.Predictions {
		fmt.Fprintf(w, "%s  %-7s  %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"), p.Kind, utils.Truncate(string(p.Output), 80))
	}
	return nil
}
