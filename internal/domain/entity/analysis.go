package entity

// AnalysisMode 视觉分析模式
type AnalysisMode string

const (
	AnalysisModeTitles AnalysisMode = "titles"
	AnalysisModeCTR    AnalysisMode = "ctr"
)

// Valid 是否为已知模式
func (m AnalysisMode) Valid() bool {
	return m == AnalysisModeTitles || m == AnalysisModeCTR
}

// CTRVerdict 两张缩略图的点击率对比结论
// Winner 为提交顺序中的位置（1 或 2）
type CTRVerdict struct {
	Winner     int               `json:"winner"`
	Reasoning  string            `json:"reasoning"`
	Comparison map[string]string `json:"comparison"`
}

// AnalysisOutcome 分析结果，按 Kind 区分
type AnalysisOutcome struct {
	Kind    AnalysisMode
	Titles  []string
	Verdict *CTRVerdict
}

// TitlesOutcome 标题建议结果
func TitlesOutcome(titles []string) AnalysisOutcome {
	return AnalysisOutcome{Kind: AnalysisModeTitles, Titles: titles}
}

// CTROutcome 对比结果
func CTROutcome(v *CTRVerdict) AnalysisOutcome {
	return AnalysisOutcome{Kind: AnalysisModeCTR, Verdict: v}
}
