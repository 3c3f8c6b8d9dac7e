package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tipnet/adapters/excel"
	"tipnet/adapters/stats/estimator"
	"tipnet/adapters/stats/oracle"
	"tipnet/app"
	"tipnet/domain/core"
	"tipnet/domain/network"
	"tipnet/internal"
	apperrors "tipnet/internal/errors"
)

// NetworkHandler serves discovery runs and information queries.
type NetworkHandler struct {
	service     *app.DiscoveryService
	params      network.Params
	oracle      oracle.Config
	maxUploadMB int64
	logger      *internal.Logger
}

// NewNetworkHandler creates a handler; params and oracleCfg are the defaults
// a request may override.
func NewNetworkHandler(service *app.DiscoveryService, params network.Params, oracleCfg oracle.Config, maxUploadMB int64, logger *internal.Logger) *NetworkHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &NetworkHandler{
		service:     service,
		params:      params,
		oracle:      oracleCfg,
		maxUploadMB: maxUploadMB,
		logger:      logger.WithComponent("API"),
	}
}

// discoverForm holds the optional overrides of a discovery upload.
type discoverForm struct {
	DTau         *int     `form:"dtau"`
	TauMax       *int     `form:"taumax"`
	TauMin       *int     `form:"taumin"`
	Deep         *bool    `form:"deep"`
	Bins         *int     `form:"bins"`
	Binning      *string  `form:"binning"`
	Alpha        *float64 `form:"alpha"`
	Test         *string  `form:"test"`
	Permutations *int     `form:"permutations"`
	Seed         *int64   `form:"seed"`
	Store        *bool    `form:"store"`
	Reuse        bool     `form:"reuse"`
	uploadForm
}

// uploadForm controls how an uploaded CSV file is read.
type uploadForm struct {
	Columns    string `form:"columns"`
	TimeColumn string `form:"time_column"`
	Interval   string `form:"interval"`
	Aggregate  string `form:"aggregate"`
	Fill       string `form:"fill"`
}

func (f uploadForm) readerConfig() excel.ReaderConfig {
	cfg := excel.DefaultReaderConfig()
	if f.Columns != "" {
		for _, col := range strings.Split(f.Columns, ",") {
			cfg.Columns = append(cfg.Columns, strings.TrimSpace(col))
		}
	}
	cfg.TimeColumn = f.TimeColumn
	cfg.Interval = f.Interval
	if f.Aggregate != "" {
		cfg.Aggregate = f.Aggregate
	}
	if f.Fill != "" {
		cfg.Fill = f.Fill
	}
	return cfg
}

// runResponse is a run plus its parents rendered with variable names.
type runResponse struct {
	*network.Run
	Parents map[string][]string `json:"parents"`
}

// Register mounts the routes on r.
func (h *NetworkHandler) Register(r gin.IRouter) {
	r.GET("/healthz", h.HandleHealth)
	api := r.Group("/api")
	api.POST("/networks", h.HandleDiscover)
	api.GET("/networks", h.HandleList)
	api.GET("/networks/:id", h.HandleGet)
	api.POST("/info", h.HandleInfo)
	api.POST("/profile", h.HandleProfile)
}

// HandleHealth reports liveness.
func (h *NetworkHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"persistence": h.service.PersistenceEnabled(),
	})
}

// HandleDiscover runs a discovery on an uploaded CSV file (form field
// "observations").
func (h *NetworkHandler) HandleDiscover(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadMB<<20)

	var form discoverForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form: " + err.Error()})
		return
	}
	req, err := h.buildRequest(form)
	if err != nil {
		h.writeError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("observations")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing observations file"})
		return
	}
	defer file.Close()

	req.Reader = excel.NewCSVReader(header.Filename, file, form.readerConfig())

	run, err := h.service.Discover(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, runResponse{Run: run, Parents: run.NamedParents()})
}

func (h *NetworkHandler) buildRequest(form discoverForm) (app.DiscoveryRequest, error) {
	params := h.params
	setInt(&params.DTau, form.DTau)
	setInt(&params.TauMax, form.TauMax)
	setInt(&params.TauMin, form.TauMin)
	if form.Deep != nil {
		params.Deep = *form.Deep
	}

	cfg := h.oracle
	setInt(&cfg.Bins, form.Bins)
	setInt(&cfg.Permutations, form.Permutations)
	if form.Alpha != nil {
		cfg.Alpha = *form.Alpha
	}
	if form.Seed != nil {
		cfg.Seed = *form.Seed
	}
	if form.Binning != nil {
		b, err := estimator.ParseBinning(*form.Binning)
		if err != nil {
			return app.DiscoveryRequest{}, apperrors.InvalidInput(err.Error())
		}
		cfg.Binning = b
	}
	if form.Test != nil {
		t, err := oracle.ParseTestKind(*form.Test)
		if err != nil {
			return app.DiscoveryRequest{}, apperrors.InvalidInput(err.Error())
		}
		cfg.Test = t
	}

	store := true
	if form.Store != nil {
		store = *form.Store
	}
	return app.DiscoveryRequest{Params: params, Oracle: cfg, Store: store, Reuse: form.Reuse}, nil
}

// HandleGet returns a stored run.
func (h *NetworkHandler) HandleGet(c *gin.Context) {
	run, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, runResponse{Run: run, Parents: run.NamedParents()})
}

// HandleList returns stored runs, newest first.
func (h *NetworkHandler) HandleList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	runs, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// HandleInfo computes information quantities for posted columns.
func (h *NetworkHandler) HandleInfo(c *gin.Context) {
	var req app.InfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	report, err := app.ComputeInfo(req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleProfile summarizes the variables of an uploaded CSV file.
func (h *NetworkHandler) HandleProfile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadMB<<20)

	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form: " + err.Error()})
		return
	}
	file, header, err := c.Request.FormFile("observations")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing observations file"})
		return
	}
	defer file.Close()

	report, err := app.ProfileObservations(c.Request.Context(), excel.NewCSVReader(header.Filename, file, form.readerConfig()))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *NetworkHandler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": apperrors.GetCode(err)})
}

func statusFor(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	switch apperrors.GetCode(err) {
	case apperrors.CodeInvalidInput, apperrors.CodeConfigInvalid:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
