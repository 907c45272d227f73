package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// SNAPSHOT - Parallel load of every collection a view joins over
// =============================================================================

type snapshot struct {
	jobs      []cleaning.Job
	units     []cleaning.Unit
	buildings []cleaning.Building
	clients   []cleaning.Client
	employees []cleaning.Employee
	config    cleaning.SystemConfig
}

// loadSnapshot reads all collections concurrently and waits for every
// load. The first failure cancels the others and is returned.
func (h *Handler) loadSnapshot(ctx context.Context) (snapshot, error) {
	var s snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { s.jobs, err = h.jobs.List(ctx); return })
	g.Go(func() (err error) { s.units, err = h.repos.Units.All(ctx); return })
	g.Go(func() (err error) { s.buildings, err = h.repos.Buildings.All(ctx); return })
	g.Go(func() (err error) { s.clients, err = h.repos.Clients.All(ctx); return })
	g.Go(func() (err error) { s.employees, err = h.repos.Employees.All(ctx); return })
	g.Go(func() (err error) { s.config, err = h.settings.Get(ctx); return })

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return s, nil
}

// =============================================================================
// REPORTS
// =============================================================================

// GetReport aggregates completed jobs per service, client or building.
// start and end (YYYY-MM-DD) must be given together; format=xlsx returns a
// spreadsheet instead of JSON.
// GET /api/reports
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	groupBy := cleaning.GroupBy(q.Get("group_by"))
	if groupBy == "" {
		groupBy = cleaning.GroupByService
	}
	if !groupBy.Valid() {
		h.respondError(w, r, &cleaning.ValidationError{Field: "group_by", Message: fmt.Sprintf("unknown grouping %q", groupBy)})
		return
	}

	rng, err := h.parseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	format := q.Get("format")
	if format != "" && format != "json" && format != "xlsx" {
		h.respondError(w, r, &cleaning.ValidationError{Field: "format", Message: fmt.Sprintf("unknown format %q", format)})
		return
	}

	snap, err := h.loadSnapshot(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	report := cleaning.Aggregate(cleaning.ReportInput{
		Jobs:      snap.jobs,
		Units:     snap.units,
		Buildings: snap.buildings,
		Clients:   snap.clients,
		Config:    snap.config,
		Range:     rng,
		GroupBy:   groupBy,
	})

	if format == "xlsx" {
		h.writeReportXLSX(w, r, report)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

func (h *Handler) parseRange(start, end string) (*cleaning.DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, &cleaning.ValidationError{Field: "start", Message: "start and end must be given together"}
	}
	from, err := cleaning.ParseDate(start, h.loc)
	if err != nil {
		return nil, err
	}
	to, err := cleaning.ParseDate(end, h.loc)
	if err != nil {
		return nil, err
	}
	return &cleaning.DateRange{Start: from, End: to}, nil
}

// =============================================================================
// XLSX EXPORT
// =============================================================================

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) writeReportXLSX(w http.ResponseWriter, r *http.Request, report cleaning.Report) {
	f, err := reportWorkbook(report)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	defer f.Close()

	name := fmt.Sprintf("report_%s_%s.xlsx", report.GroupBy, h.now().In(h.loc).Format(cleaning.DateLayout))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.WriteHeader(http.StatusOK)
	// headers are already sent; a failed write can only be logged
	if err := f.Write(w); err != nil {
		h.log.Error("xlsx write failed",
			zap.String("path", r.URL.Path),
			zap.String("trace_id", traceIDFrom(r.Context())),
			zap.Error(err))
	}
}

// reportWorkbook renders one sheet with a bold header row. The service
// view has one line per job; grouped views one line per client or
// building.
func reportWorkbook(report cleaning.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := []any{"Name", "Jobs", "Revenue", "Cost", "Profit", "Estimated hours", "Actual hours", "Productivity"}
	if report.GroupBy == cleaning.GroupByService {
		header = []any{"Date", "Unit", "Building", "Client", "Revenue", "Cost", "Profit", "Estimated hours", "Actual hours", "Productivity"}
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return nil, err
	}

	for i, row := range report.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{
			row.Revenue.InexactFloat64(),
			row.Cost.InexactFloat64(),
			row.Profit.InexactFloat64(),
			row.EstimatedHours.InexactFloat64(),
			row.ActualHours.InexactFloat64(),
			row.Productivity.String(),
		}
		var line []any
		if report.GroupBy == cleaning.GroupByService {
			line = append([]any{row.Date.Format(cleaning.DateLayout), row.UnitName, row.BuildingName, row.ClientName}, values...)
		} else {
			line = append([]any{row.Name, row.JobCount}, values...)
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(sheet, "A", "D", 22); err != nil {
		return nil, err
	}
	return f, nil
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns the KPI summary as of now.
// GET /api/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.loadSnapshot(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	d := cleaning.Summarize(cleaning.DashboardInput{
		Jobs:      snap.jobs,
		Units:     snap.units,
		Buildings: snap.buildings,
		Clients:   snap.clients,
		Employees: snap.employees,
		Config:    snap.config,
		Location:  h.loc,
	}, h.now())
	writeJSON(w, http.StatusOK, toDashboardDTO(d))
}
