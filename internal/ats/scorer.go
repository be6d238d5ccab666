package ats

import (
	"strings"
)

// Scorer 确定性评分：同一输入永远得到同一结果
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score 计算四项分数，空输入全部为 0
func (s *Scorer) Score(parsed *ParsedResume) Breakdown {
	if parsed == nil || parsed.Stats.Words == 0 {
		return Breakdown{}
	}

	b := Breakdown{
		Structure:   clamp(structureScore(parsed), MaxStructureScore),
		Keywords:    clamp(keywordScore(parsed), MaxKeywordScore),
		Readability: clamp(readabilityScore(parsed), MaxReadabilityScore),
		Formatting:  clamp(formattingScore(parsed), MaxFormattingScore),
	}
	b.Total = b.Structure + b.Keywords + b.Readability + b.Formatting
	return b
}

// structureScore 联系方式 5 分，标准段落 20 分
func structureScore(p *ParsedResume) int {
	score := 0
	if p.Contact.Email != "" {
		score += 3
	}
	if p.Contact.Phone != "" {
		score += 2
	}
	if p.HasSection(SectionExperience) {
		score += 6
	}
	if p.HasSection(SectionEducation) {
		score += 4
	}
	if p.HasSection(SectionSkills) {
		score += 4
	}
	if p.HasSection(SectionSummary) {
		score += 3
	}
	if p.HasSection(SectionProjects) || p.HasSection(SectionCertifications) {
		score += 3
	}
	return score
}

// keywordScore 技能词覆盖 20 分，动词开头的经历 10 分
func keywordScore(p *ParsedResume) int {
	skills := len(p.Skills)
	if skills > 10 {
		skills = 10
	}

	verbs := 0
	for _, bullet := range p.Bullets {
		fields := strings.Fields(strings.ToLower(bullet))
		if len(fields) == 0 {
			continue
		}
		if _, ok := actionVerbs[strings.Trim(fields[0], ",.;:")]; ok {
			verbs++
		}
	}
	if verbs > 10 {
		verbs = 10
	}

	return skills*2 + verbs
}

// readabilityScore 句长 10 分，长句比例 5 分，量化成果 10 分
func readabilityScore(p *ParsedResume) int {
	st := p.Stats
	if st.Sentences == 0 {
		return 0
	}

	score := 0
	switch avg := st.AvgSentence; {
	case avg >= 8 && avg <= 20:
		score += 10
	case (avg >= 5 && avg < 8) || (avg > 20 && avg <= 25):
		score += 6
	default:
		score += 2
	}

	ratio := float64(st.LongSentences) / float64(st.Sentences)
	switch {
	case ratio == 0:
		score += 5
	case ratio < 0.2:
		score += 3
	}

	quantified := st.Quantified
	if quantified > 5 {
		quantified = 5
	}
	score += quantified * 2

	return score
}

// formattingScore 篇幅 6 分，列表 6 分，行长 4 分，无表格 4 分
func formattingScore(p *ParsedResume) int {
	st := p.Stats
	if st.Lines == 0 {
		return 0
	}

	score := 0
	switch w := st.Words; {
	case w >= 300 && w <= 900:
		score += 6
	case (w >= 150 && w < 300) || (w > 900 && w <= 1200):
		score += 4
	default:
		score += 1
	}

	switch {
	case st.BulletLines >= 3:
		score += 6
	case st.BulletLines >= 1:
		score += 3
	}

	if st.LongLines == 0 {
		score += 4
	} else if st.LongLines*10 < st.Lines {
		score += 2
	}

	if st.TableLines == 0 {
		score += 4
	} else if st.TableLines*10 < st.Lines {
		score += 2
	}

	return score
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
