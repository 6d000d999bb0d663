package source

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-tracker/internal/logger"
	"github.com/spigell/job-tracker/internal/model"
	"github.com/spigell/job-tracker/internal/utils"
)

var (
	genericTitles = []string{
		"Data Scientist", "Software Engineer", "Product Manager", "UX Designer", "Marketing Specialist",
		"DevOps Engineer", "Full Stack Developer", "Machine Learning Engineer", "Frontend Developer",
		"Backend Developer", "Project Manager", "Business Analyst", "Data Analyst", "UI Designer",
		"Content Writer", "Sales Representative", "Customer Success Manager",
	}

	keywordTitles = []string{
		"Senior %s Developer",
		"%s Engineer",
		"%s Specialist",
		"Lead %s Architect",
	}

	companies = []string{
		"Google", "Microsoft", "Amazon", "Apple", "Meta", "Netflix", "Spotify", "Salesforce",
		"Adobe", "IBM", "Oracle", "Cisco", "Intel", "Uber", "Airbnb", "X", "LinkedIn", "Slack",
		"Zoom", "PayPal", "Square", "Shopify", "Nvidia", "Tesla",
	}

	locations = []string{"CA", "NY", "WA", "TX", "CT", "MA", "GA", "FL", "OR", "CO", "IL", "AZ"}

	skillPool = []string{
		"Python", "JavaScript", "SQL", "React", "Node.js", "AWS", "Docker", "Kubernetes",
		"TensorFlow", "PyTorch", "Excel", "Tableau", "PowerBI", "Figma", "Sketch", "JIRA", "Git",
		"Snowflake", "Artificial Intelligence", "Machine Learning", "Deep Learning", "NLP",
	}
)

const descriptionTemplate = `%[1]s is seeking a %[2]s to join our growing team in %[3]s.

Responsibilities:
- Design, develop, and maintain %[4]s solutions
- Collaborate with cross-functional teams to define requirements
- Implement best practices and standards
- Troubleshoot and resolve technical issues

Requirements:
- %[5]s of experience in %[2]s
- Proficiency in: %[6]s
- Bachelor's degree in Computer Science or related field
- Strong communication and teamwork skills`

// GeneratorOptions tunes the simulated source.
type GeneratorOptions struct {
	// Seed makes the output reproducible. Zero seeds from the clock.
	Seed int64
	// Delay simulates network latency per platform.
	Delay time.Duration
	// Now overrides the clock used for date_posted.
	Now func() time.Time
}

// Generator is a JobSource that simulates postings from several platforms.
type Generator struct {
	delay  time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a simulated job source.
func NewGenerator(opts GeneratorOptions, log *zap.Logger) *Generator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{
		delay:  opts.Delay,
		now:    now,
		logger: logger.WithFields(log, zap.String("source", "generator")),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Fetch generates limit/len(platforms)+1 postings per platform, shuffles them and keeps the first limit.
func (g *Generator) Fetch(ctx context.Context, q Query) ([]model.Posting, error) {
	if len(q.Platforms) == 0 || q.Limit <= 0 {
		return nil, nil
	}

	perPlatform := q.Limit/len(q.Platforms) + 1
	keywords := q.KeywordList()
	today := model.Day(g.now())

	postings := make([]model.Posting, 0, perPlatform*len(q.Platforms))
	for _, platform := range q.Platforms {
		if err := utils.WaitFor(ctx, g.delay); err != nil {
			return nil, fmt.Errorf("fetching %s: %w", platform, err)
		}

		g.mu.Lock()
		for i := 0; i < perPlatform; i++ {
			postings = append(postings, g.posting(platform, keywords, q.Location, today))
		}
		g.mu.Unlock()

		g.logger.Debug("platform fetched", zap.String("platform", platform), zap.Int("postings", perPlatform))
	}

	g.mu.Lock()
	g.rng.Shuffle(len(postings), func(i, j int) {
		postings[i], postings[j] = postings[j], postings[i]
	})
	g.mu.Unlock()

	if len(postings) > q.Limit {
		postings = postings[:q.Limit]
	}
	return postings, nil
}

// posting must be called with g.mu held.
func (g *Generator) posting(platform string, keywords []string, location string, today time.Time) model.Posting {
	title := g.pick(genericTitles)
	if len(keywords) > 0 && g.rng.Float64() < 0.7 {
		title = fmt.Sprintf(g.pick(keywordTitles), g.pick(keywords))
	}

	loc := g.pick(locations)
	if location != "" && g.rng.Float64() < 0.8 {
		loc = location
	}

	company := g.pick(companies)
	skills := g.sample(skillPool, 3+g.rng.Intn(5))
	experience := fmt.Sprintf("%d+ years", 1+g.rng.Intn(8))

	base := 70 + g.rng.Intn(111)
	salary := fmt.Sprintf("$%dK - $%dK", base, base+15+g.rng.Intn(26))

	url := fmt.Sprintf("https://%s.com/jobs/%s-%s-%d",
		strings.ToLower(strings.ReplaceAll(platform, " ", "")),
		strings.ToLower(company),
		utils.Slug(title),
		10000+g.rng.Intn(90000),
	)

	return model.Posting{
		JobTitle:    title,
		Company:     company,
		Location:    loc,
		Description: fmt.Sprintf(descriptionTemplate, company, title, loc, strings.ToLower(title), experience, strings.Join(skills, ", ")),
		Salary:      salary,
		SourceURL:   url,
		Platform:    platform,
		DatePosted:  today.AddDate(0, 0, -g.rng.Intn(15)),
	}
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.Intn(len(values))]
}

func (g *Generator) sample(values []string, k int) []string {
	idx := g.rng.Perm(len(values))[:k]
	out := make([]string, 0, k)
	for _, i := range idx {
		out = append(out, values[i])
	}
	return out
}
