package ats

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultJDMaxChars 职位描述长度上限（字符）
const DefaultJDMaxChars = 10000

const maxSuggestions = 15

var (
	ErrJobDescriptionEmpty   = errors.New("job description is empty")
	ErrJobDescriptionTooLong = errors.New("job description exceeds maximum length")
)

// Matcher 简历与职位描述的关键词匹配
type Matcher struct {
	MaxChars int
}

func NewMatcher(maxChars int) *Matcher {
	if maxChars <= 0 {
		maxChars = DefaultJDMaxChars
	}
	return &Matcher{MaxChars: maxChars}
}

// MatchJobDescription 使用默认长度上限匹配
func MatchJobDescription(resumeText, jdText string) (*MatchResult, error) {
	return NewMatcher(DefaultJDMaxChars).Match(resumeText, jdText)
}

// Match 权重 = 职位描述中出现次数 × 重要度（技能词为 2，否则为 1），
// 匹配度为已覆盖权重占总权重的百分比
func (m *Matcher) Match(resumeText, jdText string) (*MatchResult, error) {
	if strings.TrimSpace(jdText) == "" {
		return nil, ErrJobDescriptionEmpty
	}
	if len([]rune(jdText)) > m.MaxChars {
		return nil, fmt.Errorf("%w (%d characters)", ErrJobDescriptionTooLong, m.MaxChars)
	}

	resumeFreq := make(map[string]int)
	for _, tok := range tokenize(resumeText) {
		resumeFreq[tok.norm]++
	}

	type entry struct {
		surface string
		freq    int
	}
	jd := make(map[string]*entry)
	var order []string
	for _, tok := range keywords(jdText, true) {
		e, ok := jd[tok.norm]
		if !ok {
			e = &entry{surface: tok.surface}
			jd[tok.norm] = e
			order = append(order, tok.norm)
		}
		e.freq++
	}

	result := &MatchResult{
		MatchedKeywords: []KeywordWeight{},
		MissingKeywords: []KeywordWeight{},
		Suggestions:     []Suggestion{},
	}

	var totalWeight, matchedWeight int
	for _, norm := range order {
		e := jd[norm]
		importance := 1
		if IsSkill(norm) {
			importance = 2
		}
		kw := KeywordWeight{
			Keyword:         e.surface,
			Frequency:       e.freq,
			ResumeFrequency: resumeFreq[norm],
			Weight:          e.freq * importance,
		}
		totalWeight += kw.Weight
		if kw.ResumeFrequency > 0 {
			matchedWeight += kw.Weight
			result.MatchedKeywords = append(result.MatchedKeywords, kw)
		} else {
			result.MissingKeywords = append(result.MissingKeywords, kw)
		}
	}

	if totalWeight > 0 {
		result.MatchPercentage = int(math.Round(100 * float64(matchedWeight) / float64(totalWeight)))
	}

	sortByWeight(result.MatchedKeywords)
	sortByWeight(result.MissingKeywords)

	for _, kw := range result.MissingKeywords {
		if len(result.Suggestions) == maxSuggestions {
			break
		}
		result.Suggestions = append(result.Suggestions, Suggestion{
			Keyword:  kw.Keyword,
			Priority: priorityFor(kw.Weight),
			Message:  suggestionMessage(kw),
		})
	}

	return result, nil
}

func priorityFor(weight int) string {
	switch {
	case weight >= 4:
		return PriorityCritical
	case weight >= 2:
		return PriorityImportant
	default:
		return PrioritySuggested
	}
}

func suggestionMessage(kw KeywordWeight) string {
	times := "once"
	if kw.Frequency > 1 {
		times = fmt.Sprintf("%d times", kw.Frequency)
	}
	return fmt.Sprintf("The job description mentions %q %s; add it where it reflects your experience", kw.Keyword, times)
}

func sortByWeight(list []KeywordWeight) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Weight != list[j].Weight {
			return list[i].Weight > list[j].Weight
		}
		return strings.ToLower(list[i].Keyword) < strings.ToLower(list[j].Keyword)
	})
}
