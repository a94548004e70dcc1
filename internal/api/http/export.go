package apihttp

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/DKasatik/Power-Monitor-Bot/internal/analytics/domain/statistic"
	"github.com/DKasatik/Power-Monitor-Bot/internal/notify"
)

var statisticsHeader = []string{
	"date",
	"total_outages",
	"planned_outages",
	"emergency_outages",
	"total_outage_duration_seconds",
	"longest_outage_seconds",
}

// ExportStatisticsCSVHandler serves daily statistics as CSV.
type ExportStatisticsCSVHandler struct {
	stats StatisticsReader
}

// NewExportStatisticsCSVHandler constructs an ExportStatisticsCSVHandler.
func NewExportStatisticsCSVHandler(stats StatisticsReader) *ExportStatisticsCSVHandler {
	return &ExportStatisticsCSVHandler{stats: stats}
}

// ServeHTTP handles GET /api/v1/exports/statistics.csv.
func (h *ExportStatisticsCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.stats == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dailies, err := h.stats.ListDailyStatistics(r.Context(), from, to)
	if err != nil {
		http.Error(w, "query statistics error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="statistics.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write(statisticsHeader)
	for _, daily := range dailies {
		_ = writer.Write([]string{
			daily.Date.Format(dateLayout),
			formatInt64(daily.TotalOutages),
			formatInt64(daily.PlannedOutages),
			formatInt64(daily.EmergencyOutages),
			formatInt64(daily.TotalOutageDurationSeconds),
			formatInt64(daily.LongestOutageSeconds),
		})
	}
	writer.Flush()
}

// ExportStatisticsXLSXHandler serves daily statistics as a workbook.
type ExportStatisticsXLSXHandler struct {
	stats StatisticsReader
}

// NewExportStatisticsXLSXHandler constructs an ExportStatisticsXLSXHandler.
func NewExportStatisticsXLSXHandler(stats StatisticsReader) *ExportStatisticsXLSXHandler {
	return &ExportStatisticsXLSXHandler{stats: stats}
}

// ServeHTTP handles GET /api/v1/exports/statistics.xlsx.
func (h *ExportStatisticsXLSXHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.stats == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dailies, err := h.stats.ListDailyStatistics(r.Context(), from, to)
	if err != nil {
		http.Error(w, "query statistics error", http.StatusInternalServerError)
		return
	}
	summary, err := h.stats.PeriodStatistics(r.Context(), from, to)
	if err != nil {
		http.Error(w, "query statistics error", http.StatusInternalServerError)
		return
	}
	payload, err := BuildStatisticsXLSX(summary, dailies)
	if err != nil {
		http.Error(w, "build workbook error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="statistics.xlsx"`)
	_, _ = w.Write(payload)
}

// OutageReportPDFHandler serves a period outage report.
type OutageReportPDFHandler struct {
	stats StatisticsReader
}

// NewOutageReportPDFHandler constructs an OutageReportPDFHandler.
func NewOutageReportPDFHandler(stats StatisticsReader) *OutageReportPDFHandler {
	return &OutageReportPDFHandler{stats: stats}
}

// ServeHTTP handles GET /api/v1/reports/outages.pdf.
func (h *OutageReportPDFHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.stats == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dailies, err := h.stats.ListDailyStatistics(r.Context(), from, to)
	if err != nil {
		http.Error(w, "query statistics error", http.StatusInternalServerError)
		return
	}
	summary, err := h.stats.PeriodStatistics(r.Context(), from, to)
	if err != nil {
		http.Error(w, "query statistics error", http.StatusInternalServerError)
		return
	}
	payload, err := BuildOutageReportPDF(summary, dailies)
	if err != nil {
		http.Error(w, "build report error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="outages.pdf"`)
	_, _ = w.Write(payload)
}

// BuildStatisticsXLSX renders a workbook with a summary and a daily sheet.
func BuildStatisticsXLSX(summary statistic.PeriodSummary, dailies []statistic.Daily) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	dailySheet := "daily"
	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(dailySheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Power Outage Statistics")
	_ = f.SetCellValue(summarySheet, "A3", "From")
	_ = f.SetCellValue(summarySheet, "B3", summary.From.Format(dateLayout))
	_ = f.SetCellValue(summarySheet, "A4", "To")
	_ = f.SetCellValue(summarySheet, "B4", summary.To.Format(dateLayout))
	_ = f.SetCellValue(summarySheet, "A5", "Total Outages")
	_ = f.SetCellValue(summarySheet, "B5", summary.TotalOutages)
	_ = f.SetCellValue(summarySheet, "A6", "Planned Outages")
	_ = f.SetCellValue(summarySheet, "B6", summary.PlannedOutages)
	_ = f.SetCellValue(summarySheet, "A7", "Emergency Outages")
	_ = f.SetCellValue(summarySheet, "B7", summary.EmergencyOutages)
	_ = f.SetCellValue(summarySheet, "A8", "Total Outage Duration")
	_ = f.SetCellValue(summarySheet, "B8", notify.FormatDuration(summary.TotalOutageDurationSeconds))
	_ = f.SetCellValue(summarySheet, "A9", "Longest Outage")
	_ = f.SetCellValue(summarySheet, "B9", notify.FormatDuration(summary.LongestOutageSeconds))
	_ = f.SetCellValue(summarySheet, "A10", "Days With Outages")
	_ = f.SetCellValue(summarySheet, "B10", summary.DaysWithOutages)

	for i, header := range statisticsHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(dailySheet, cell, header)
	}
	for i, daily := range dailies {
		row := i + 2
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("A%d", row), daily.Date.Format(dateLayout))
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("B%d", row), daily.TotalOutages)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("C%d", row), daily.PlannedOutages)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("D%d", row), daily.EmergencyOutages)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("E%d", row), daily.TotalOutageDurationSeconds)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("F%d", row), daily.LongestOutageSeconds)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildOutageReportPDF renders a minimal PDF period report.
func BuildOutageReportPDF(summary statistic.PeriodSummary, dailies []statistic.Daily) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Power Outage Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", summary.From.Format(dateLayout), summary.To.Format(dateLayout)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Outages: %d (planned %d, emergency %d)",
		summary.TotalOutages, summary.PlannedOutages, summary.EmergencyOutages))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Outage Duration: %s", notify.FormatDuration(summary.TotalOutageDurationSeconds)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Longest Outage: %s", notify.FormatDuration(summary.LongestOutageSeconds)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Days With Outages: %d", summary.DaysWithOutages))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Outages", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Planned", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Emergency", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Total Duration", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Longest", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, daily := range dailies {
		pdf.CellFormat(30, 6, daily.Date.Format(dateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, formatInt64(daily.TotalOutages), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, formatInt64(daily.PlannedOutages), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, formatInt64(daily.EmergencyOutages), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, notify.FormatDuration(daily.TotalOutageDurationSeconds), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, notify.FormatDuration(daily.LongestOutageSeconds), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatInt64(value int64) string {
	return strconv.FormatInt(value, 10)
}
