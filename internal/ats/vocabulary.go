package ats

import "strings"

// skillVocabulary 常见技能词表，命中的关键词权重加倍
var skillVocabulary = toSet(
	// languages
	"python", "java", "javascript", "typescript", "go", "golang", "rust", "c", "c++", "c#",
	"ruby", "php", "kotlin", "swift", "scala", "r", "sql", "bash", "html", "css",
	// frameworks
	"react", "angular", "vue", "node.js", "nodejs", "express", "django", "flask", "fastapi",
	"spring", "rails", ".net", "gin", "graphql", "rest", "grpc", "tensorflow", "pytorch",
	"pandas", "numpy", "spark", "hadoop", "kafka", "rabbitmq",
	// data
	"postgresql", "postgres", "mysql", "mongodb", "redis", "elasticsearch", "dynamodb",
	"snowflake", "bigquery", "etl",
	// cloud / ops
	"aws", "azure", "gcp", "docker", "kubernetes", "k8s", "terraform", "ansible", "jenkins",
	"ci/cd", "linux", "git", "helm", "prometheus", "grafana", "microservices", "serverless",
	// practices
	"agile", "scrum", "tdd", "devops", "mlops", "security", "testing", "api", "apis",
	"machine-learning", "nlp", "analytics", "excel", "tableau", "figma", "jira",
)

// actionVerbs 经历描述中推荐使用的动词
var actionVerbs = toSet(
	"achieved", "built", "created", "delivered", "designed", "developed", "drove",
	"engineered", "established", "grew", "implemented", "improved", "increased",
	"launched", "led", "managed", "mentored", "migrated", "optimized", "owned",
	"reduced", "refactored", "resolved", "scaled", "shipped", "spearheaded",
	"streamlined", "automated", "architected", "coordinated", "analyzed",
)

var stopWords = toSet(
	"a", "an", "and", "are", "as", "at", "be", "been", "but", "by", "can", "do", "for",
	"from", "has", "have", "he", "her", "his", "i", "if", "in", "into", "is", "it", "its",
	"me", "my", "no", "not", "of", "on", "or", "our", "she", "so", "such", "that", "the",
	"their", "them", "then", "there", "these", "they", "this", "to", "us", "was", "we",
	"were", "what", "when", "where", "which", "who", "will", "with", "would", "you", "your",
	"all", "any", "also", "etc", "per", "via", "than", "more", "most", "other", "some",
	"should", "must", "may", "might", "could", "about", "across", "within", "using",
)

// jdFillerWords 招聘描述中的套话，不计入关键词
var jdFillerWords = toSet(
	"job", "role", "position", "candidate", "candidates", "looking", "seeking", "join",
	"required", "requirements", "require", "requires", "requiring", "preferred", "plus",
	"experience", "experienced", "skills", "skill", "knowledge", "ability", "strong",
	"years", "year", "work", "working", "team", "teams", "responsibilities", "responsible",
	"including", "etc", "good", "great", "excellent", "familiarity", "familiar",
	"understanding", "proficiency", "proficient", "hands-on", "nice", "have", "bonus",
)

// sectionAliases 段落标题到标准段落名的映射
var sectionAliases = map[string]string{
	"summary":                 SectionSummary,
	"professional summary":    SectionSummary,
	"profile":                 SectionSummary,
	"objective":               SectionSummary,
	"about me":                SectionSummary,
	"experience":              SectionExperience,
	"work experience":         SectionExperience,
	"professional experience": SectionExperience,
	"employment history":      SectionExperience,
	"work history":            SectionExperience,
	"education":               SectionEducation,
	"academic background":     SectionEducation,
	"skills":                  SectionSkills,
	"technical skills":        SectionSkills,
	"core competencies":       SectionSkills,
	"projects":                SectionProjects,
	"personal projects":       SectionProjects,
	"certifications":          SectionCertifications,
	"certificates":            SectionCertifications,
	"licenses":                SectionCertifications,
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsSkill 是否为词表中的技能
func IsSkill(token string) bool {
	_, ok := skillVocabulary[token]
	return ok
}

// IsActionVerb 是否为推荐的动作动词
func IsActionVerb(word string) bool {
	_, ok := actionVerbs[strings.ToLower(word)]
	return ok
}
