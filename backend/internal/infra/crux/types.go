package crux

import (
	"encoding/json"
	"strconv"
)

// FormFactor 为 CrUX 请求侧的设备类型取值。
type FormFactor string

const (
	FormFactorPhone   FormFactor = "PHONE"
	FormFactorTablet  FormFactor = "TABLET"
	FormFactorDesktop FormFactor = "DESKTOP"
)

// Date 表示 CrUX 采集周期中的日期，月与日均为 1 起始。
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// CollectionPeriod 描述上游聚合报告覆盖的日期区间。
type CollectionPeriod struct {
	FirstDate Date `json:"firstDate"`
	LastDate  Date `json:"lastDate"`
}

// FlexNumber 兼容 CrUX 在直方图边界与分位值里混用的 number/string 表示。
type FlexNumber float64

// UnmarshalJSON 同时接受数字与带引号的数字。
func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	if len(data) > 1 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = FlexNumber(parsed)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = FlexNumber(f)
	return nil
}

// Bin 为直方图中的一个取值区间，Density 是该区间的样本占比。
type Bin struct {
	Start   FlexNumber  `json:"start"`
	End     *FlexNumber `json:"end,omitempty"`
	Density float64     `json:"density"`
}

// Percentiles 目前只承载 75 分位值。
type Percentiles struct {
	P75 FlexNumber `json:"p75"`
}

// ValueKind 标识指标取值的三种形态。
type ValueKind int

const (
	KindUnknown ValueKind = iota
	// KindDistribution 表示直方图（可能附带 p75）。
	KindDistribution
	// KindPercentile 表示仅有 p75 标量。
	KindPercentile
	// KindFractions 表示按子维度拆分的占比。
	KindFractions
)

// MetricValue 是指标取值的标签联合：直方图+可选分位、仅分位、或占比拆分。
// 对 payload 三种形态的解读集中在这里，调用方不要再各自摸黑解析。
type MetricValue struct {
	Histogram   []Bin              `json:"histogram,omitempty"`
	Percentiles *Percentiles       `json:"percentiles,omitempty"`
	Fractions   map[string]float64 `json:"fractions,omitempty"`
}

// Kind 判定该取值属于哪种形态。
func (v MetricValue) Kind() ValueKind {
	switch {
	case len(v.Histogram) > 0:
		return KindDistribution
	case v.Percentiles != nil:
		return KindPercentile
	case len(v.Fractions) > 0:
		return KindFractions
	default:
		return KindUnknown
	}
}

// P75 返回 75 分位值，不存在时第二个返回值为 false。
func (v MetricValue) P75() (float64, bool) {
	if v.Percentiles == nil {
		return 0, false
	}
	return float64(v.Percentiles.P75), true
}

// RecordKey 标识一条记录的归属：设备类型与 origin/url 二选一。
// 聚合记录不带 formFactor。
type RecordKey struct {
	FormFactor string `json:"formFactor,omitempty"`
	Origin     string `json:"origin,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Record 为一次查询命中的数据记录。
type Record struct {
	Key              RecordKey              `json:"key"`
	Metrics          map[string]MetricValue `json:"metrics"`
	CollectionPeriod *CollectionPeriod      `json:"collectionPeriod,omitempty"`
}

// URLNormalizationDetails 记录上游对查询 URL 的归一化结果。
type URLNormalizationDetails struct {
	OriginalURL   string `json:"originalUrl"`
	NormalizedURL string `json:"normalizedUrl"`
}

// Response 是 queryRecord 接口的完整响应。Raw 保留原始报文，
// 入库时整体落盘，核心流程不对其做模式校验。
type Response struct {
	Record                  *Record                  `json:"record,omitempty"`
	URLNormalizationDetails *URLNormalizationDetails `json:"urlNormalizationDetails,omitempty"`
	Error                   *APIError                `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// queryRequest 为 queryRecord 的请求体，origin 与 url 互斥。
type queryRequest struct {
	Origin     string     `json:"origin,omitempty"`
	URL        string     `json:"url,omitempty"`
	FormFactor FormFactor `json:"formFactor,omitempty"`
}
