// Package gitctx queries git for the context embedded in snapshots and commit entries.
//
// Every query is a single git subprocess bounded by a timeout. Any failure
// (non-zero exit, timeout, missing binary) produces an empty result instead of
// an error, so callers proceed with "unknown" values.
package gitctx

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Default timeouts for local queries and for network operations such as fetch.
const (
	DefaultTimeout        = 3 * time.Second
	DefaultNetworkTimeout = 15 * time.Second
)

// Runner executes git with args in dir and returns stdout.
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// Provider runs git queries against one working tree.
type Provider struct {
	dir            string
	timeout        time.Duration
	networkTimeout time.Duration
	run            Runner
}

// Option configures a Provider.
type Option func(*Provider)

// WithTimeout sets the timeout for local queries.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithNetworkTimeout sets the timeout for network operations.
func WithNetworkTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.networkTimeout = d
		}
	}
}

// WithRunner replaces the subprocess runner. Used by tests.
func WithRunner(r Runner) Option {
	return func(p *Provider) {
		if r != nil {
			p.run = r
		}
	}
}

// New returns a provider for the working tree at dir.
func New(dir string, opts ...Option) *Provider {
	p := &Provider{
		dir:            dir,
		timeout:        DefaultTimeout,
		networkTimeout: DefaultNetworkTimeout,
		run:            execGit,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func execGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_OPTIONAL_LOCKS=0",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, err //nolint:wrapcheck // callers only test for failure
	}
	return out, nil
}

// query runs one git command with the given timeout. ok is false on any failure.
func (p *Provider) query(ctx context.Context, timeout time.Duration, args ...string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := p.run(ctx, p.dir, args...)
	if err != nil {
		return nil, false
	}
	return out, true
}

func (p *Provider) text(ctx context.Context, args ...string) string {
	out, ok := p.query(ctx, p.timeout, args...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Branch returns the current branch name, or "" when detached or unknown.
func (p *Provider) Branch(ctx context.Context) string {
	return p.text(ctx, "branch", "--show-current")
}

// Head returns the full hash of HEAD, or "" when unknown (including an unborn branch).
func (p *Provider) Head(ctx context.Context) string {
	return p.text(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
}

// RecentCommits returns up to n one-line commit summaries, newest first.
func (p *Provider) RecentCommits(ctx context.Context, n int) []string {
	if n <= 0 {
		return nil
	}
	out := p.text(ctx, "log", "--oneline", "--no-decorate", "-n", strconv.Itoa(n))
	return splitNonEmpty(out, "\n")
}

// WorkingTreeStatus returns staged, unstaged and untracked files from a single
// porcelain status call.
func (p *Provider) WorkingTreeStatus(ctx context.Context) Status {
	out, ok := p.query(ctx, p.timeout, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if !ok {
		return Status{}
	}
	return ParseStatusZ(out)
}

// Plan selects what Gather collects.
type Plan struct {
	RecentCommits int
	IncludeStatus bool
}

// Context is the git section of a handoff snapshot.
type Context struct {
	Branch        string   `json:"branch"`
	LastCommit    string   `json:"lastCommit"`
	RecentCommits []string `json:"recentCommits"`
	Staged        []string `json:"staged"`
	Unstaged      []string `json:"unstaged"`
	Untracked     []string `json:"untracked"`
}

// Gather collects the git context described by plan. Both snapshot producers
// use it so their git sections cannot drift apart.
func (p *Provider) Gather(ctx context.Context, plan Plan) Context {
	gc := Context{
		Branch:        p.Branch(ctx),
		RecentCommits: []string{},
		Staged:        []string{},
		Unstaged:      []string{},
		Untracked:     []string{},
	}
	if gc.Branch == "" {
		gc.Branch = "unknown"
	}

	if commits := p.RecentCommits(ctx, max(plan.RecentCommits, 1)); len(commits) > 0 {
		gc.LastCommit = commits[0]
		if plan.RecentCommits > 0 {
			gc.RecentCommits = commits
		}
	}

	if plan.IncludeStatus {
		st := p.WorkingTreeStatus(ctx)
		gc.Staged = nonNil(st.Staged)
		gc.Unstaged = nonNil(st.Unstaged)
		gc.Untracked = nonNil(st.Untracked)
	}
	return gc
}

// CommitMeta is the metadata of one commit.
type CommitMeta struct {
	Hash       string
	ShortHash  string
	Subject    string
	Author     string
	AuthorDate string
	Decoration string
}

// commitFormat is NUL-delimited so arbitrary subjects cannot break the fields apart.
const commitFormat = "%H%x00%h%x00%s%x00%an%x00%aI%x00%D"

// CommitMetadata fetches hash, short hash, subject, author, author date and
// decoration for rev in one call.
func (p *Provider) CommitMetadata(ctx context.Context, rev string) (CommitMeta, bool) {
	if rev == "" || strings.HasPrefix(rev, "-") {
		return CommitMeta{}, false
	}
	out, ok := p.query(ctx, p.timeout, "log", "-1", "--format="+commitFormat, rev, "--")
	if !ok {
		return CommitMeta{}, false
	}
	fields := strings.Split(strings.TrimRight(string(out), "\r\n"), "\x00")
	if len(fields) < 6 || fields[0] == "" {
		return CommitMeta{}, false
	}
	return CommitMeta{
		Hash:       fields[0],
		ShortHash:  fields[1],
		Subject:    fields[2],
		Author:     fields[3],
		AuthorDate: fields[4],
		Decoration: fields[5],
	}, true
}

// ChangedFiles lists the files touched by rev, capped at limit, along with the
// uncapped total.
func (p *Provider) ChangedFiles(ctx context.Context, rev string, limit int) ([]string, int) {
	if rev == "" || strings.HasPrefix(rev, "-") {
		return []string{}, 0
	}
	out, ok := p.query(ctx, p.timeout, "diff-tree", "--no-commit-id", "--name-only", "-r", "--root", "-z", rev)
	if !ok {
		return []string{}, 0
	}
	files := splitNonEmpty(string(out), "\x00")
	total := len(files)
	if limit >= 0 && len(files) > limit {
		files = files[:limit]
	}
	return nonNil(files), total
}

// AheadBehind compares HEAD with its upstream. ok is false without an upstream.
func (p *Provider) AheadBehind(ctx context.Context) (ahead, behind int, ok bool) {
	out := p.text(ctx, "rev-list", "--left-right", "--count", "@{upstream}...HEAD")
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, false
	}
	b, err1 := strconv.Atoi(fields[0])
	a, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}

// ParseDecorationBranch extracts the checked-out branch from a %D decoration
// such as "HEAD -> feature/x, origin/feature/x, tag: v1". Detached HEAD yields "".
func ParseDecorationBranch(decoration string) string {
	for _, part := range strings.Split(decoration, ",") {
		part = strings.TrimSpace(part)
		if name, found := strings.CutPrefix(part, "HEAD -> "); found {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimRight(part, "\r")
		if strings.TrimSpace(part) == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Status is the parsed working tree status.
type Status struct {
	Staged    []string `json:"staged"`
	Unstaged  []string `json:"unstaged"`
	Untracked []string `json:"untracked"`
}

// ParseStatusZ parses `git status --porcelain=v1 -z` output. Records are split
// on NUL so file names with spaces, quotes or newlines survive intact. Rename and
// copy records are followed by an extra source-path record which is consumed here.
func ParseStatusZ(data []byte) Status {
	var st Status
	records := bytes.Split(data, []byte{0})
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 4 || rec[2] != ' ' {
			continue
		}
		x, y := rec[0], rec[1]
		path := string(rec[3:])

		if x == 'R' || x == 'C' || y == 'R' || y == 'C' {
			i++
		}

		switch {
		case x == '?' && y == '?':
			st.Untracked = append(st.Untracked, path)
			continue
		case x == '!' && y == '!':
			continue
		}
		if x != ' ' {
			st.Staged = append(st.Staged, path)
		}
		if y != ' ' {
			st.Unstaged = append(st.Unstaged, path)
		}
	}
	return st
}
