package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/edgecomet/render-service/internal/common/urlutil"
	"github.com/edgecomet/render-service/pkg/types"
)

const maxTrackedDomains = 100

type pendingRequest struct {
	resourceType string
	requestHost  string
	startTime    time.Time
}

type domainTally struct {
	requests     int
	bytes        int64
	failed       int
	blocked      int
	totalLatency float64
	latencyCount int
	isSameOrigin bool
}

// networkStatsCollector accumulates per-request network events over the
// lifetime of one navigation, keyed by CDP request ID, and folds them into
// a types.NetworkStats summary for the response meta block.
type networkStatsCollector struct {
	mu       sync.Mutex
	baseHost string
	navStart time.Time

	pending map[network.RequestID]*pendingRequest
	blocked map[network.RequestID]struct{}

	bytesByType    map[string]int64
	requestsByType map[string]int64
	statusCounts   map[string]int64
	domains        map[string]*domainTally

	totalRequests      int
	totalBytes         int64
	sameOriginRequests int
	sameOriginBytes    int64
	thirdPartyRequests int
	thirdPartyBytes    int64
	thirdPartyDomains  map[string]struct{}
	blockedCount       int
	failedCount        int
}

func newNetworkStatsCollector(targetURL string) *networkStatsCollector {
	return &networkStatsCollector{
		baseHost:          urlutil.ExtractHost(targetURL),
		navStart:          time.Now(),
		pending:           make(map[network.RequestID]*pendingRequest),
		blocked:           make(map[network.RequestID]struct{}),
		bytesByType:       make(map[string]int64),
		requestsByType:    make(map[string]int64),
		statusCounts:      make(map[string]int64),
		domains:           make(map[string]*domainTally),
		thirdPartyDomains: make(map[string]struct{}),
	}
}

// listen installs CDP network event handlers onto ctx that feed this
// collector, and reports blocked requests that installResourceBlocking
// decided to fail.
func (c *networkStatsCollector) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			c.onRequestSent(e.RequestID, string(e.Type), e.Request.URL)
		case *network.EventResponseReceived:
			c.onResponseReceived(e.RequestID, e.Response.Status)
		case *network.EventLoadingFinished:
			c.onLoadingFinished(e.RequestID, int64(e.EncodedDataLength))
		case *network.EventLoadingFailed:
			c.onLoadingFailed(e.RequestID)
		}
	})
}

// onRequestBlocked is invoked by installResourceBlocking when a request is
// failed deliberately, so it counts as blocked rather than failed.
func (c *networkStatsCollector) onRequestBlocked(reqID network.RequestID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked[reqID] = struct{}{}
	c.blockedCount++
	if req, ok := c.pending[reqID]; ok {
		tally := c.getOrCreateDomain(req.requestHost)
		tally.blocked++
	}
}

func (c *networkStatsCollector) onRequestSent(reqID network.RequestID, resourceType, requestURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[reqID] = &pendingRequest{
		resourceType: resourceType,
		requestHost:  urlutil.ExtractHost(requestURL),
		startTime:    time.Now(),
	}
}

func (c *networkStatsCollector) onResponseReceived(reqID network.RequestID, status int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	statusClass := classifyStatusCode(int(status))
	if statusClass != "" {
		c.statusCounts[statusClass]++
	}
}

func (c *networkStatsCollector) onLoadingFinished(reqID network.RequestID, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.pending[reqID]
	if !ok {
		return
	}
	delete(c.pending, reqID)

	c.totalRequests++
	c.totalBytes += bytes

	resourceType := req.resourceType
	if resourceType == "" {
		resourceType = "Other"
	}
	c.bytesByType[resourceType] += bytes
	c.requestsByType[resourceType]++

	isSameOrigin := urlutil.IsSameOrigin(c.baseHost, req.requestHost)
	if isSameOrigin {
		c.sameOriginRequests++
		c.sameOriginBytes += bytes
	} else {
		c.thirdPartyRequests++
		c.thirdPartyBytes += bytes
		if req.requestHost != "" {
			c.thirdPartyDomains[req.requestHost] = struct{}{}
		}
	}

	tally := c.getOrCreateDomain(req.requestHost)
	tally.isSameOrigin = isSameOrigin
	tally.requests++
	tally.bytes += bytes
	if latency := time.Since(req.startTime).Seconds(); latency > 0 {
		tally.totalLatency += latency
		tally.latencyCount++
	}
}

func (c *networkStatsCollector) onLoadingFailed(reqID network.RequestID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.pending[reqID]
	delete(c.pending, reqID)

	if _, wasBlocked := c.blocked[reqID]; wasBlocked {
		return
	}
	c.failedCount++
	if ok && req.requestHost != "" {
		tally := c.getOrCreateDomain(req.requestHost)
		tally.failed++
	}
}

func (c *networkStatsCollector) getOrCreateDomain(hostname string) *domainTally {
	if hostname == "" {
		hostname = "unknown"
	}
	t, ok := c.domains[hostname]
	if !ok {
		t = &domainTally{}
		c.domains[hostname] = t
	}
	return t
}

// snapshot produces the types.NetworkStats summary, capped at
// maxTrackedDomains per-domain entries (busiest first).
func (c *networkStatsCollector) snapshot() *types.NetworkStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := &types.NetworkStats{
		TotalRequests:      c.totalRequests,
		TotalBytes:         c.totalBytes,
		SameOriginRequests: c.sameOriginRequests,
		SameOriginBytes:    c.sameOriginBytes,
		ThirdPartyRequests: c.thirdPartyRequests,
		ThirdPartyBytes:    c.thirdPartyBytes,
		ThirdPartyDomains:  len(c.thirdPartyDomains),
		BlockedCount:       c.blockedCount,
		FailedCount:        c.failedCount,
	}

	if len(c.bytesByType) > 0 {
		stats.BytesByType = copyInt64Map(c.bytesByType)
	}
	if len(c.requestsByType) > 0 {
		stats.RequestsByType = copyInt64Map(c.requestsByType)
	}
	if len(c.statusCounts) > 0 {
		stats.StatusCounts = copyInt64Map(c.statusCounts)
	}

	if len(c.domains) == 0 {
		return stats
	}

	type entry struct {
		host  string
		tally *domainTally
	}
	entries := make([]entry, 0, len(c.domains))
	for host, tally := range c.domains {
		entries = append(entries, entry{host, tally})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].tally.requests > entries[j].tally.requests
	})
	if len(entries) > maxTrackedDomains {
		entries = entries[:maxTrackedDomains]
	}

	stats.DomainStats = make(map[string]*types.DomainStats, len(entries))
	for _, e := range entries {
		ds := &types.DomainStats{
			Requests: e.tally.requests,
			Bytes:    e.tally.bytes,
			Failed:   e.tally.failed,
			Blocked:  e.tally.blocked,
		}
		if e.tally.latencyCount > 0 {
			ds.AvgLatency = e.tally.totalLatency / float64(e.tally.latencyCount)
		}
		stats.DomainStats[e.host] = ds
	}
	return stats
}

func copyInt64Map(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func classifyStatusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return types.StatusClass2xx
	case code >= 300 && code < 400:
		return types.StatusClass3xx
	case code >= 400 && code < 500:
		return types.StatusClass4xx
	case code >= 500 && code < 600:
		return types.StatusClass5xx
	default:
		return ""
	}
}
