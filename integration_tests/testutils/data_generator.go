package testutils

import (
	"context"
	"fmt"
	"time"

	problemservice "github.com/Black-And-White-Club/hydro/app/modules/problem/application"
	userservice "github.com/Black-And-White-Club/hydro/app/modules/user/application"
	"github.com/brianvoe/gofakeit/v7"
)

// TestDataGenerator provides methods to create test data for integration tests
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}

	return &TestDataGenerator{
		faker: gofakeit.New(uint64(s)),
		seed:  s,
	}
}

// Seed returns the seed, for reproducing a failing run.
func (g *TestDataGenerator) Seed() int64 { return g.seed }

// GenerateUsers creates count user requests with uids starting at firstUID.
func (g *TestDataGenerator) GenerateUsers(firstUID int64, count int) []userservice.CreateUserRequest {
	users := make([]userservice.CreateUserRequest, count)
	for i := range users {
		users[i] = userservice.CreateUserRequest{
			UID: firstUID + int64(i),
			// The index suffix keeps unames unique within one run.
			Uname:  fmt.Sprintf("%s%d", g.faker.Username(), i),
			Mail:   g.faker.Email(),
			School: g.faker.Company(),
		}
	}
	return users
}

// GenerateProblems creates count problem requests in domainID.
func (g *TestDataGenerator) GenerateProblems(domainID string, count int) []problemservice.AddRequest {
	problems := make([]problemservice.AddRequest, count)
	for i := range problems {
		problems[i] = problemservice.AddRequest{
			DomainID: domainID,
			Title:    g.Title(),
			Content:  g.faker.Paragraph(1, 3, 12, " "),
			Owner:    1,
			Tag:      []string{g.faker.HackerNoun()},
		}
	}
	return problems
}

// Title returns a short title that passes the 64 rune limit.
func (g *TestDataGenerator) Title() string {
	title := g.faker.HackerPhrase()
	if r := []rune(title); len(r) > 64 {
		title = string(r[:64])
	}
	return title
}

// SeedDirectory creates users and problems and returns the problem ids.
func SeedDirectory(ctx context.Context, g *TestDataGenerator, users *userservice.UserService, problems *problemservice.ProblemService, domainID string, nUsers, nProblems int) ([]int64, error) {
	for _, req := range g.GenerateUsers(2, nUsers) {
		if _, err := users.Create(ctx, req); err != nil {
			return nil, fmt.Errorf("seed user %d: %w", req.UID, err)
		}
	}
	pids := make([]int64, 0, nProblems)
	for _, req := range g.GenerateProblems(domainID, nProblems) {
		id, err := problems.Add(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("seed problem: %w", err)
		}
		pids = append(pids, id)
	}
	return pids, nil
}
