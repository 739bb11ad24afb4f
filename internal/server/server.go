package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/arr-forecast/internal/config"
	"github.com/iwvelando/arr-forecast/internal/forecast"
	"github.com/iwvelando/arr-forecast/pkg/adapters"
	"github.com/iwvelando/arr-forecast/pkg/chart"
	"github.com/iwvelando/arr-forecast/pkg/constants"
	"github.com/iwvelando/arr-forecast/pkg/output"
	"github.com/iwvelando/arr-forecast/pkg/tabular"
	"github.com/iwvelando/arr-forecast/pkg/validation"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed static/*
var staticFiles embed.FS

//go:embed samples/*.csv
var sampleFiles embed.FS

const (
	sampleKPIFile = "samples/sample_kpi.csv"
	sampleNBMFile = "samples/sample_nbm.csv"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the web UI and forecast API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion}

	mux := http.NewServeMux()

	// Forecast API endpoint (CSV uploads and override fields)
	mux.HandleFunc("/api/forecast", h.handleForecast)

	// Forecast API endpoint for editor-driven updates
	mux.HandleFunc("/api/editor/forecast", h.handleForecastEditor)

	// Config serialization endpoint for editor downloads
	mux.HandleFunc("/api/editor/export", h.handleConfigExport)

	// Forecast CSV download
	mux.HandleFunc("/api/export", h.handleCSVExport)

	// Override defaults used to pre-fill the UI
	mux.HandleFunc("/api/defaults", h.handleDefaults)

	// Version endpoint for UI metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	// Static assets (web UI)
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	fileServer := http.FileServer(http.FS(sub))
	mux.Handle("/", fileServer)

	return mux
}

type forecastResponse struct {
	RunID          string              `json:"runId"`
	Rows           []forecastRow       `json:"rows"`
	CSV            string              `json:"csv"`
	Chart          *chart.Config       `json:"chart,omitempty"`
	ConversionRate float64             `json:"conversionRate"`
	ACV            float64             `json:"acv"`
	TotalARR       float64             `json:"totalArr"`
	Assumptions    map[string]float64  `json:"assumptions"`
	KPIs           []observationRecord `json:"kpis,omitempty"`
	Targets        []targetRecord      `json:"targets,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
	Duration       string              `json:"duration"`
	ConfigYAML     string              `json:"configYaml,omitempty"`
}

type forecastRow struct {
	Month string  `json:"month"`
	ARR   float64 `json:"arr"`
}

type observationRecord struct {
	MetricName string  `json:"metric_name"`
	Window     string  `json:"window"`
	Value      float64 `json:"value"`
}

type targetRecord struct {
	Month string  `json:"month"`
	NBM   float64 `json:"NBM"`
}

type defaultsResponse struct {
	Metrics   []string           `json:"metrics"`
	Overrides map[string]float64 `json:"overrides"`
	LagMatrix string             `json:"lagMatrix"`
}

// requestError carries the status a handler should answer with.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...interface{}) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (h *handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecast"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if err := h.parseUpload(w, r); err != nil {
		h.respondRequestError(w, err, op)
		return
	}

	observations, err := h.uploadedObservations(r, op)
	if err != nil {
		h.respondRequestError(w, err, op)
		return
	}

	targets, err := h.uploadedTargets(r, op)
	if err != nil {
		h.respondRequestError(w, err, op)
		return
	}

	overrides := forecast.DefaultOverrides(observations)
	for _, name := range forecast.RecognizedMetrics {
		raw := strings.TrimSpace(r.FormValue(name))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid value %q for %s", raw, name), op)
			return
		}
		overrides[name] = value
	}

	lagMatrix := strings.TrimSpace(r.FormValue("lagMatrix"))
	weights, err := tabular.ParseLagWeights(lagMatrix)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid lagMatrix %q: %v", lagMatrix, err), op)
		return
	}
	if lagMatrix == "" {
		lagMatrix = constants.DefaultLagMatrix
	}

	in := forecast.Inputs{
		Observations: observations,
		Overrides:    overrides,
		Targets:      targets,
		LagWeights:   weights,
	}

	months := make([]string, 0, len(targets))
	for _, t := range targets {
		months = append(months, t.Period)
	}
	warnings := validation.ValidateLagWeights(weights)
	warnings = append(warnings, validation.ValidateTargetMonths(months)...)

	result, runID, err := h.runForecast(in, op)
	if err != nil {
		h.respondRequestError(w, err, op)
		return
	}

	response := h.buildResponse(runID, in, result, warnings, start)
	response.ConfigYAML = encodeConfigYAML(h.logger, adapters.ConfigFromInputs(in, lagMatrix), op)
	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleForecastEditor(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecastEditor"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	cfg, in, warnings, err := h.decodeEditorConfig(w, r)
	if err != nil {
		h.respondRequestError(w, err, op)
		return
	}

	result, runID, err := h.runForecast(in, op)
	if err != nil {
		h.respondRequestError(w, err, op)
		return
	}

	response := h.buildResponse(runID, in, result, warnings, start)
	response.ConfigYAML = encodeConfigYAML(h.logger, cfg, op)
	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleCSVExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCSVExport"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	_, in, _, err := h.decodeEditorConfig(w, r)
	if err != nil {
		h.respondRequestError(w, err, op)
		return
	}

	result, _, err := h.runForecast(in, op)
	if err != nil {
		h.respondRequestError(w, err, op)
		return
	}

	var buf bytes.Buffer
	if err := output.WriteCSV(&buf, result.Rows); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode CSV: %v", err), op)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", constants.DefaultExportFileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write CSV response", zap.String("op", op), zap.Error(err))
	}
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfigExport"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	payload, err := h.decodeJSONBody(w, r)
	if err != nil {
		h.respondRequestError(w, err, op)
		return
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

func (h *handler) handleDefaults(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDefaults"

	var observations []forecast.Observation
	switch r.Method {
	case http.MethodGet:
		sample, err := readSample(sampleKPIFile, tabular.ReadObservations)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
			return
		}
		observations = sample
	case http.MethodPost:
		if err := h.parseUpload(w, r); err != nil {
			h.respondRequestError(w, err, op)
			return
		}
		uploaded, err := h.uploadedObservations(r, op)
		if err != nil {
			h.respondRequestError(w, err, op)
			return
		}
		observations = uploaded
	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, defaultsResponse{
		Metrics:   forecast.RecognizedMetrics,
		Overrides: forecast.DefaultOverrides(observations),
		LagMatrix: constants.DefaultLagMatrix,
	})
}

// limitBody bounds the request body by the configured upload size.
func (h *handler) limitBody(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
}

// tooLarge returns a 413 request error when err comes from reading past the
// body limit, and nil otherwise.
func (h *handler) tooLarge(err error) error {
	var maxBytesErr *http.MaxBytesError
	if !errors.As(err, &maxBytesErr) {
		return nil
	}
	return &requestError{
		status: http.StatusRequestEntityTooLarge,
		msg:    fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize),
	}
}

// parseUpload bounds the request body and parses the multipart form.
func (h *handler) parseUpload(w http.ResponseWriter, r *http.Request) error {
	h.limitBody(w, r)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		if tooLarge := h.tooLarge(err); tooLarge != nil {
			return tooLarge
		}
		return badRequest("failed to parse upload: %v", err)
	}
	return nil
}

// decodeJSONBody reads a bounded JSON object from the request body. A null
// body decodes to an empty object.
func (h *handler) decodeJSONBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	h.limitBody(w, r)

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if tooLarge := h.tooLarge(err); tooLarge != nil {
			return nil, tooLarge
		}
		return nil, badRequest("failed to decode configuration: %v", err)
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return payload, nil
}

func (h *handler) uploadedObservations(r *http.Request, op string) ([]forecast.Observation, error) {
	return readUploadOrSample(h, r, "kpi", sampleKPIFile, tabular.ReadObservations, op)
}

func (h *handler) uploadedTargets(r *http.Request, op string) ([]forecast.Target, error) {
	return readUploadOrSample(h, r, "nbm", sampleNBMFile, tabular.ReadTargets, op)
}

// readUploadOrSample parses the named form file, falling back to the
// embedded sample when the field is absent.
func readUploadOrSample[T any](h *handler, r *http.Request, field, sample string, read func(io.Reader) (T, error), op string) (T, error) {
	var zero T

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		h.logger.Debug("no upload, using sample data",
			zap.String("op", op),
			zap.String("field", field),
			zap.String("sample", sample),
		)
		result, err := readSample(sample, read)
		if err != nil {
			return zero, &requestError{status: http.StatusInternalServerError, msg: err.Error()}
		}
		return result, nil
	}
	if err != nil {
		return zero, badRequest("failed to read %s upload: %v", field, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	result, err := read(file)
	if err != nil {
		return zero, badRequest("%s (%s): %v", field, header.Filename, err)
	}
	return result, nil
}

func readSample[T any](name string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := sampleFiles.Open(name)
	if err != nil {
		return zero, fmt.Errorf("failed to open sample data: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	result, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("failed to read sample data: %w", err)
	}
	return result, nil
}

// decodeEditorConfig turns a JSON run configuration into forecast inputs.
// The configuration may be sent bare or wrapped as {"config": {...}}.
func (h *handler) decodeEditorConfig(w http.ResponseWriter, r *http.Request) (*config.Configuration, forecast.Inputs, []string, error) {
	var in forecast.Inputs

	payload, err := h.decodeJSONBody(w, r)
	if err != nil {
		return nil, in, nil, err
	}

	configPayload := payload
	if rawConfig, ok := payload["config"]; ok {
		cfgMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			return nil, in, nil, badRequest("invalid config payload: expected object")
		}
		configPayload = cfgMap
	}

	configBytes, err := yaml.Marshal(configPayload)
	if err != nil {
		return nil, in, nil, badRequest("failed to encode configuration: %v", err)
	}

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		return nil, in, nil, badRequest("%v", err)
	}
	if cfg.Inputs.KPIFile != "" || cfg.Inputs.NBMFile != "" {
		return nil, in, nil, badRequest("file inputs are not accepted here; send metrics and targets inline")
	}

	warnings := cfg.ValidateConfiguration()
	in, err = adapters.InputsFromConfig(h.logger, cfg)
	if err != nil {
		return nil, in, nil, badRequest("%v", err)
	}
	return cfg, in, warnings, nil
}

// runForecast computes one forecast under a fresh run identifier. Every
// engine error is an input error.
func (h *handler) runForecast(in forecast.Inputs, op string) (*forecast.Forecast, string, error) {
	runID := uuid.NewString()
	logger := h.logger.With(zap.String("runId", runID))

	result, err := forecast.Run(logger, in)
	if err != nil {
		return nil, runID, badRequest("%v", err)
	}

	logger.Debug("forecast request served",
		zap.String("op", op),
		zap.Int("rows", len(result.Rows)),
	)
	return result, runID, nil
}

func (h *handler) buildResponse(runID string, in forecast.Inputs, result *forecast.Forecast, warnings []string, start time.Time) forecastResponse {
	elapsed := time.Since(start)

	response := forecastResponse{
		RunID:          runID,
		Rows:           buildRows(result.Rows),
		CSV:            output.CsvString(result.Rows),
		Chart:          chart.BuildARRChart(result.Rows),
		ConversionRate: result.ConversionRate,
		ACV:            result.ACV,
		TotalARR:       result.Total(),
		Assumptions:    result.Assumptions,
		KPIs:           buildObservationRecords(in.Observations),
		Targets:        buildTargetRecords(in.Targets),
		Warnings:       append(warnings, result.Warnings()...),
		Duration:       elapsed.String(),
	}

	h.logger.Info("forecast computed",
		zap.String("op", "server.buildResponse"),
		zap.String("runId", runID),
		zap.Int("rows", len(response.Rows)),
		zap.Int("warnings", len(response.Warnings)),
		zap.Duration("duration", elapsed),
	)
	return response
}

func buildRows(rows []forecast.Row) []forecastRow {
	out := make([]forecastRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, forecastRow{Month: row.Month.FirstOfMonth(), ARR: row.ARR})
	}
	return out
}

func buildObservationRecords(observations []forecast.Observation) []observationRecord {
	if len(observations) == 0 {
		return nil
	}
	out := make([]observationRecord, 0, len(observations))
	for _, o := range observations {
		out = append(out, observationRecord{MetricName: o.MetricName, Window: o.Window, Value: o.Value})
	}
	return out
}

func buildTargetRecords(targets []forecast.Target) []targetRecord {
	if len(targets) == 0 {
		return nil
	}
	out := make([]targetRecord, 0, len(targets))
	for _, t := range targets {
		out = append(out, targetRecord{Month: t.Period, NBM: t.NBM})
	}
	return out
}

func encodeConfigYAML(logger *zap.Logger, cfg *config.Configuration, op string) string {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		logger.Warn("failed to marshal run configuration",
			zap.String("op", op),
			zap.Error(err),
		)
		return ""
	}
	return string(data)
}

// configKeyOrder lists the top-level run configuration keys in the order
// they are written out; unknown keys follow alphabetically.
var configKeyOrder = []string{"inputs", "metrics", "targets", "assumptions", "lagMatrix", "logging", "output"}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range configKeyOrder {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	ordered := orderedConfig{items: items}
	return yaml.Marshal(ordered)
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) respondRequestError(w http.ResponseWriter, err error, op string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		h.respondErrorWithOp(w, reqErr.status, reqErr.msg, op)
		return
	}
	h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("forecast request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
