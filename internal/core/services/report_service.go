package services

import (
	"context"
	"strings"

	"collections-console/internal/core/domain"
)

// Report types the collections API can export
var reportTypes = map[string]bool{
	"collections":  true,
	"arrears":      true,
	"transactions": true,
	"agents":       true,
}

// ReportService backs the reports screen
type ReportService struct {
	api CollectionsAPI
}

// NewReportService creates a new report service
func NewReportService(api CollectionsAPI) *ReportService {
	return &ReportService{api: api}
}

// Summary returns the aggregates for a date range
func (s *ReportService) Summary(ctx context.Context, sess *domain.Session, from, to string) (*domain.ReportSummary, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	return s.api.ReportSummary(ctx, sess.AuthToken, from, to)
}

// Export downloads a report
func (s *ReportService) Export(ctx context.Context, sess *domain.Session, reportType, from, to, format string) (*domain.Export, error) {
	reportType = strings.ToLower(strings.TrimSpace(reportType))
	if reportType == "" {
		reportType = "collections"
	}
	if !reportTypes[reportType] {
		return nil, domain.ValidationError("unknown report type %q", reportType)
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	format, err := exportFormat(format)
	if err != nil {
		return nil, err
	}
	return s.api.ExportReport(ctx, sess.AuthToken, reportType, from, to, format)
}
