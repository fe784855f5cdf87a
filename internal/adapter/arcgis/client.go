package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/hydrolink/internal/config"
	"github.com/couchcryptid/hydrolink/internal/domain"
	"github.com/couchcryptid/hydrolink/internal/observability"
)

// Query labels used for metrics and cache keys.
const (
	queryFlowlines           = "flowlines"
	queryNonNetworkFlowlines = "nonnetwork_flowlines"
	queryWaterbody           = "waterbody"
	queryWaterbodyFlowlines  = "waterbody_flowlines"
)

// layers describes where each feature type lives in a version's MapServer.
type layers struct {
	flowline        int
	flowlineWhere   string
	flowlineFields  string
	nonNetwork      int // 0 when the service has no non-network layer
	nonNetworkField string
	waterbody       int
	waterbodyFields string
}

var serviceLayers = map[domain.NHDVersion]layers{
	domain.NHDHighRes: {
		flowline:        1,
		flowlineWhere:   "ftype NOT IN (420,428,566)",
		flowlineFields:  "gnis_name,lengthkm,permanent_identifier,reachcode",
		waterbody:       2,
		waterbodyFields: "permanent_identifier,gnis_name,ftype,reachcode",
	},
	domain.NHDPlusV2: {
		flowline:        2,
		flowlineFields:  "GNIS_NAME,LENGTHKM,REACHCODE,COMID,TERMINALFLAG",
		nonNetwork:      3,
		nonNetworkField: "GNIS_NAME,LENGTHKM,REACHCODE,COMID",
		waterbody:       4,
		waterbodyFields: "PERMANENT_IDENTIFIER,COMID,GNIS_NAME,FTYPE,REACHCODE",
	},
}

// Client implements domain.NHDService against the USGS and EPA ArcGIS
// MapServer query endpoints.
type Client struct {
	httpClient *http.Client
	baseURLs   map[domain.NHDVersion]string
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an NHD map service client.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.NHDTimeout,
		},
		baseURLs: map[domain.NHDVersion]string{
			domain.NHDHighRes: strings.TrimRight(cfg.NHDHRBaseURL, "/"),
			domain.NHDPlusV2:  strings.TrimRight(cfg.NHDPlusV2BaseURL, "/"),
		},
		limiter: newLimiter(cfg.NHDRateLimit),
		logger:  logger,
		metrics: metrics,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// FlowlinesNear returns flowlines within bufferMeters of p. NHDPlusV2 falls
// back to non-network flowlines when no network flowline is nearby.
func (c *Client) FlowlinesNear(ctx context.Context, version domain.NHDVersion, p orb.Point, bufferMeters int) ([]domain.Flowline, error) {
	l, err := layersFor(version)
	if err != nil {
		return nil, err
	}

	params := bufferParams(p, bufferMeters, l.flowlineFields)
	if l.flowlineWhere != "" {
		params.Set("where", l.flowlineWhere)
	}
	features, err := c.query(ctx, version, l.flowline, params, queryFlowlines)
	if err != nil {
		return nil, err
	}

	if len(features) == 0 && l.nonNetwork != 0 {
		c.logger.Debug("no network flowlines, querying non-network", "nhd_version", version)
		features, err = c.query(ctx, version, l.nonNetwork, bufferParams(p, bufferMeters, l.nonNetworkField), queryNonNetworkFlowlines)
		if err != nil {
			return nil, err
		}
	}
	return toFlowlines(features), nil
}

// FlowlinesInWaterbody returns the flowlines inside a waterbody.
func (c *Client) FlowlinesInWaterbody(ctx context.Context, version domain.NHDVersion, waterbodyID string) ([]domain.Flowline, error) {
	l, err := layersFor(version)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"where":     {fmt.Sprintf("WBAREA_PERMANENT_IDENTIFIER IN ('%s')", strings.ReplaceAll(waterbodyID, "'", "''"))},
		"outSR":     {strconv.Itoa(domain.EPSGNAD83)},
		"f":         {"JSON"},
		"outFields": {l.flowlineFields},
		"returnM":   {"true"},
	}
	features, err := c.query(ctx, version, l.flowline, params, queryWaterbodyFlowlines)
	if err != nil {
		return nil, err
	}
	return toFlowlines(features), nil
}

// WaterbodyAt returns the waterbody containing p, or nil when there is none.
func (c *Client) WaterbodyAt(ctx context.Context, version domain.NHDVersion, p orb.Point) (*domain.Waterbody, error) {
	l, err := layersFor(version)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"geometryType":   {"esriGeometryPoint"},
		"spatialRel":     {"esriSpatialRelWithin"},
		"inSR":           {strconv.Itoa(domain.EPSGNAD83)},
		"geometry":       {formatPoint(p)},
		"f":              {"JSON"},
		"outFields":      {l.waterbodyFields},
		"returnGeometry": {"false"},
	}
	features, err := c.query(ctx, version, l.waterbody, params, queryWaterbody)
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, nil
	}

	a := features[0].attrs()
	return &domain.Waterbody{
		PermanentID: a.str("permanent_identifier"),
		GNISName:    a.str("gnis_name"),
		ReachCode:   a.str("reachcode"),
		FType:       int(a.num("ftype")),
		ComID:       int64(a.num("comid")),
	}, nil
}

func (c *Client) query(ctx context.Context, version domain.NHDVersion, layer int, params url.Values, query string) ([]feature, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := fmt.Sprintf("%s/%d/query?%s", c.baseURLs[version], layer, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.NHDAPIDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.NHDRequests.WithLabelValues(query, "error").Inc()
		return nil, fmt.Errorf("%s query: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.NHDRequests.WithLabelValues(query, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("arcgis API error: status %d: %s", resp.StatusCode, body)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		c.metrics.NHDRequests.WithLabelValues(query, "error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// ArcGIS reports query errors in a 200 response body.
	if qr.Error != nil {
		c.metrics.NHDRequests.WithLabelValues(query, "error").Inc()
		return nil, fmt.Errorf("arcgis API error: code %d: %s", qr.Error.Code, qr.Error.Message)
	}

	outcome := "success"
	if len(qr.Features) == 0 {
		outcome = "empty"
	}
	c.metrics.NHDRequests.WithLabelValues(query, outcome).Inc()
	return qr.Features, nil
}

func layersFor(version domain.NHDVersion) (layers, error) {
	l, ok := serviceLayers[version]
	if !ok {
		return layers{}, fmt.Errorf("%w: unknown nhd version %q", domain.ErrInvalidOptions, version)
	}
	return l, nil
}

func bufferParams(p orb.Point, bufferMeters int, fields string) url.Values {
	return url.Values{
		"geometryType": {"esriGeometryPoint"},
		"inSR":         {strconv.Itoa(domain.EPSGNAD83)},
		"geometry":     {formatPoint(p)},
		"distance":     {strconv.Itoa(bufferMeters)},
		"units":        {"esriSRUnit_Meter"},
		"outSR":        {strconv.Itoa(domain.EPSGNAD83)},
		"f":            {"JSON"},
		"outFields":    {fields},
		"returnM":      {"true"},
	}
}

// formatPoint renders lon,lat the way ArcGIS expects a point geometry.
func formatPoint(p orb.Point) string {
	return strconv.FormatFloat(p.Lon(), 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat(), 'f', -1, 64)
}

func toFlowlines(features []feature) []domain.Flowline {
	flowlines := make([]domain.Flowline, 0, len(features))
	for _, f := range features {
		a := f.attrs()
		fl := domain.Flowline{
			GNISName:    a.str("gnis_name"),
			LengthKm:    a.num("lengthkm"),
			PermanentID: a.str("permanent_identifier"),
			ReachCode:   a.str("reachcode"),
			ComID:       int64(a.num("comid")),
			Vertices:    f.Geometry.vertices(),
		}
		if v, ok := a["terminalflag"].(float64); ok {
			flag := int(v)
			fl.TerminalFlag = &flag
		}
		flowlines = append(flowlines, fl)
	}
	return flowlines
}

// ArcGIS REST API response types.

type queryResponse struct {
	Features []feature  `json:"features"`
	Error    *errorBody `json:"error"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   geometry       `json:"geometry"`
}

type geometry struct {
	Paths [][][]float64 `json:"paths"` // [x, y, m]
}

// vertices returns the first path. NHD flowlines are single part.
func (g geometry) vertices() []domain.Vertex {
	if len(g.Paths) == 0 {
		return nil
	}
	path := g.Paths[0]
	out := make([]domain.Vertex, 0, len(path))
	for _, coord := range path {
		if len(coord) < 2 {
			continue
		}
		v := domain.Vertex{X: coord[0], Y: coord[1]}
		if len(coord) > 2 {
			v.M = coord[2]
		}
		out = append(out, v)
	}
	return out
}

// attributes are keyed by lowercase field name; the services disagree on case.
type attributes map[string]any

func (f feature) attrs() attributes {
	a := make(attributes, len(f.Attributes))
	for k, v := range f.Attributes {
		a[strings.ToLower(k)] = v
	}
	return a
}

func (a attributes) str(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a attributes) num(key string) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}
