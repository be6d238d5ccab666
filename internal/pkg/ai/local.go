package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/qs3c/ats_resume_server/internal/ats"
)

const maxLocalSuggestions = 10

var (
	digitPattern = regexp.MustCompile(`\d`)
	weakOpeners  = map[string]string{
		"responsible": "Owned",
		"worked":      "Delivered",
		"helped":      "Contributed to",
		"assisted":    "Supported",
		"did":         "Executed",
		"handled":     "Managed",
		"involved":    "Drove",
	}
)

// LocalRewriter 不依赖外部服务的规则实现，用于开发环境和服务不可用时
type LocalRewriter struct{}

func NewLocalRewriter() *LocalRewriter {
	return &LocalRewriter{}
}

// Suggest 针对弱动词开头和缺少量化结果的条目给出改写
func (l *LocalRewriter) Suggest(ctx context.Context, resumeText, jobDescription string) ([]Suggestion, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, ErrEmptyResume
	}
	parsed := ats.ParseText(resumeText)

	var missing []string
	if strings.TrimSpace(jobDescription) != "" {
		if match, err := ats.MatchJobDescription(resumeText, jobDescription); err == nil {
			for i, kw := range match.MissingKeywords {
				if i >= 3 {
					break
				}
				missing = append(missing, kw.Keyword)
			}
		}
	}

	var out []Suggestion
	for _, bullet := range parsed.Bullets {
		if len(out) >= maxLocalSuggestions {
			break
		}
		s, ok := rewriteBullet(bullet, missing)
		if ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func rewriteBullet(bullet string, missing []string) (Suggestion, bool) {
	words := strings.Fields(bullet)
	if len(words) == 0 {
		return Suggestion{}, false
	}

	first := strings.ToLower(strings.Trim(words[0], ".,;:"))
	improved := bullet
	var reasons []string

	if replacement, weak := weakOpeners[first]; weak {
		rest := strings.Join(words[1:], " ")
		rest = strings.TrimPrefix(rest, "for ")
		rest = strings.TrimPrefix(rest, "on ")
		improved = replacement + " " + rest
		reasons = append(reasons, "start with a strong action verb")
	} else if !ats.IsActionVerb(first) {
		reasons = append(reasons, "lead with an action verb such as built or delivered")
	}

	if !digitPattern.MatchString(bullet) {
		improved = strings.TrimRight(improved, ". ") + ", resulting in a measurable X% improvement"
		reasons = append(reasons, "quantify the impact")
	}

	if len(missing) > 0 && len(reasons) > 0 {
		reasons = append(reasons, fmt.Sprintf("mention relevant keywords (%s) if accurate", strings.Join(missing, ", ")))
	}

	if len(reasons) == 0 {
		return Suggestion{}, false
	}
	return Suggestion{
		Section:  ats.SectionExperience,
		Original: bullet,
		Improved: improved,
		Reason:   strings.Join(reasons, "; "),
	}, true
}

// CoverLetter 基于简历技能生成模板化求职信
func (l *LocalRewriter) CoverLetter(ctx context.Context, resumeText, jobDescription, companyName string) (string, error) {
	if strings.TrimSpace(resumeText) == "" {
		return "", ErrEmptyResume
	}
	parsed := ats.ParseText(resumeText)

	company := strings.TrimSpace(companyName)
	if company == "" {
		company = "your company"
	}

	skills := parsed.Skills
	if len(skills) > 5 {
		skills = skills[:5]
	}

	var b strings.Builder
	b.WriteString("Dear Hiring Manager,\n\n")
	fmt.Fprintf(&b, "I am excited to apply for this role at %s. ", company)
	if len(skills) > 0 {
		fmt.Fprintf(&b, "My background in %s aligns closely with what your team is looking for. ", strings.Join(skills, ", "))
	}
	b.WriteString("\n\n")
	if len(parsed.Bullets) > 0 {
		b.WriteString("Recent highlights from my work include:\n")
		for i, bullet := range parsed.Bullets {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
		b.WriteString("\n")
	}
	if strings.TrimSpace(jobDescription) != "" {
		b.WriteString("Having reviewed the job description, I am confident I can contribute from day one.\n\n")
	}
	fmt.Fprintf(&b, "Thank you for considering my application. I would welcome the chance to discuss how I can help %s.\n\n", company)
	b.WriteString("Sincerely,\n")
	return b.String(), nil
}
