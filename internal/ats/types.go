package ats

// 各项分数上限
const (
	MaxStructureScore   = 25
	MaxKeywordScore     = 30
	MaxReadabilityScore = 25
	MaxFormattingScore  = 20
	MaxTotalScore       = MaxStructureScore + MaxKeywordScore + MaxReadabilityScore + MaxFormattingScore
)

// 标准段落名称
const (
	SectionSummary        = "summary"
	SectionExperience     = "experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionProjects       = "projects"
	SectionCertifications = "certifications"
)

// ParsedResume 简历的结构化表示，解析失败时可能只有部分字段
type ParsedResume struct {
	Text     string      `json:"text"`
	Contact  ContactInfo `json:"contact"`
	Sections []Section   `json:"sections"`
	Bullets  []string    `json:"bullets"`
	Skills   []string    `json:"skills"`
	Stats    TextStats   `json:"stats"`
}

type ContactInfo struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`
}

type Section struct {
	Name    string `json:"name"`
	Heading string `json:"heading"`
	Content string `json:"content"`
}

type TextStats struct {
	Words         int     `json:"words"`
	Sentences     int     `json:"sentences"`
	Lines         int     `json:"lines"`
	BulletLines   int     `json:"bullet_lines"`
	LongSentences int     `json:"long_sentences"`
	Quantified    int     `json:"quantified"`
	LongLines     int     `json:"long_lines"`
	TableLines    int     `json:"table_lines"`
	AvgSentence   float64 `json:"avg_sentence_length"`
}

// HasSection 是否包含指定段落
func (p *ParsedResume) HasSection(name string) bool {
	for _, s := range p.Sections {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Breakdown 评分明细，Total 恒等于四项之和
type Breakdown struct {
	Total       int `json:"total"`
	Structure   int `json:"structure"`
	Keywords    int `json:"keywords"`
	Readability int `json:"readability"`
	Formatting  int `json:"formatting"`
}

// 建议优先级
const (
	PriorityCritical  = "critical"
	PriorityImportant = "important"
	PrioritySuggested = "suggested"
)

type KeywordWeight struct {
	Keyword         string `json:"keyword"`
	Frequency       int    `json:"frequency"`
	ResumeFrequency int    `json:"resume_frequency"`
	Weight          int    `json:"weight"`
}

type Suggestion struct {
	Keyword  string `json:"keyword"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
}

type MatchResult struct {
	MatchPercentage int             `json:"match_percentage"`
	MatchedKeywords []KeywordWeight `json:"matched_keywords"`
	MissingKeywords []KeywordWeight `json:"missing_keywords"`
	Suggestions     []Suggestion    `json:"suggestions"`
}
