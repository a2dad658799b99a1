package interview

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// Vars are the template variables passed to a message or prompt.
type Vars map[string]any

// Message names, rendered locally.
const (
	MsgAskSkills        = "ask_skills"
	MsgDefaultGreeting  = "default_greeting"
	MsgClosing          = "closing"
	MsgReentrySkills    = "reentry_skills"
	MsgReentryReadiness = "reentry_readiness"
	MsgReentryInterview = "reentry_interview"
	MsgReentryClosed    = "reentry_closed"
	MsgReentryDefault   = "reentry_default"
)

// Prompt names, sent to the model.
const (
	PromptSkillsCheck     = "skills_check"
	PromptSkillsMissing   = "skills_missing"
	PromptSkillsUnclear   = "skills_unclear"
	PromptSkillsSummary   = "skills_summary"
	PromptReadinessNotice = "readiness_notice"
	PromptReadyCheck      = "ready_check"
	PromptNotReady        = "not_ready"
	PromptReadyUnclear    = "ready_unclear"
	PromptResume          = "resume"
	PromptEngineTurn      = "engine_turn"
)

var (
	requiredMessages = []string{
		MsgAskSkills, MsgDefaultGreeting, MsgClosing, MsgReentrySkills,
		MsgReentryReadiness, MsgReentryInterview, MsgReentryClosed, MsgReentryDefault,
	}
	requiredPrompts = []string{
		PromptSkillsCheck, PromptSkillsMissing, PromptSkillsUnclear, PromptSkillsSummary,
		PromptReadinessNotice, PromptReadyCheck, PromptNotReady, PromptReadyUnclear,
		PromptResume, PromptEngineTurn,
	}
)

type promptFile struct {
	Messages map[string]string `yaml:"messages"`
	Prompts  map[string]string `yaml:"prompts"`
}

// Prompts is the parsed set of fixed messages and model prompt templates.
type Prompts struct {
	messages map[string]*template.Template
	prompts  map[string]*template.Template
}

// DefaultPrompts parses the built-in prompt set.
func DefaultPrompts() (*Prompts, error) {
	return LoadPrompts("")
}

// LoadPrompts parses the built-in prompt set and overlays the entries found in
// the YAML file at path, if path is not empty. Keys missing from the file keep
// their built-in text.
func LoadPrompts(path string) (*Prompts, error) {
	var base promptFile
	if err := yaml.Unmarshal(defaultPromptsYAML, &base); err != nil {
		return nil, fmt.Errorf("failed to parse built-in prompts: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompts file: %w", err)
		}
		var override promptFile
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
		}
		for name, text := range override.Messages {
			base.Messages[name] = text
		}
		for name, text := range override.Prompts {
			base.Prompts[name] = text
		}
	}

	messages, err := parseTemplates(base.Messages, requiredMessages)
	if err != nil {
		return nil, err
	}
	prompts, err := parseTemplates(base.Prompts, requiredPrompts)
	if err != nil {
		return nil, err
	}
	return &Prompts{messages: messages, prompts: prompts}, nil
}

func parseTemplates(raw map[string]string, required []string) (map[string]*template.Template, error) {
	for _, name := range required {
		if strings.TrimSpace(raw[name]) == "" {
			return nil, fmt.Errorf("prompt %q is missing or empty", name)
		}
	}

	parsed := make(map[string]*template.Template, len(raw))
	for name, text := range raw {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %q: %w", name, err)
		}
		parsed[name] = tmpl
	}
	return parsed, nil
}

// Message renders a fixed message.
func (p *Prompts) Message(name string, vars Vars) (string, error) {
	return render(p.messages, name, vars)
}

// Prompt renders a model prompt.
func (p *Prompts) Prompt(name string, vars Vars) (string, error) {
	return render(p.prompts, name, vars)
}

func render(set map[string]*template.Template, name string, vars Vars) (string, error) {
	tmpl, ok := set[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any(vars)); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
