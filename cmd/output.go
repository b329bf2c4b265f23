package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/models"
	"github.com/ethanolivertroy/pinlock/internal/reporter"
	"github.com/google/uuid"
)

func newReport(command string) *models.Report {
	return &models.Report{RunID: uuid.NewString(), Command: command}
}

// emit renders report in the configured format and returns errFailed when the
// report should fail the run.
func emit(stdout io.Writer, report *models.Report) error {
	rep, err := reporter.Get(cfg.OutputFormat)
	if err != nil {
		return err
	}

	output, err := rep.Report(report)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if err := writeOutput(stdout, output); err != nil {
		return err
	}

	if report.Failed(cfg.FailOnKEV) {
		return errFailed
	}
	return nil
}

// writeOutput writes data to the configured output file, or stdout
func writeOutput(stdout io.Writer, data []byte) error {
	if cfg.OutputFile == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(cfg.OutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	logger.Logger().Infof("report written to %s", cfg.OutputFile)
	return nil
}
