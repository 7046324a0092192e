package scenario

import (
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/internal/util"
	"gopkg.in/yaml.v3"
)

// Recognized scenario names. Loading anything else fails fast with a
// ConfigError before any provider call is made.
const (
	Default      = "default"
	Aggressive   = "aggressive"
	AggressiveEN = "aggressive_en"
)

//go:embed config/*.yaml
var bundleFS embed.FS

// Names returns the closed set of recognized scenario names.
func Names() []string { return []string{Default, Aggressive, AggressiveEN} }

func known(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Trait is a persona component with a short description and a detail line.
type Trait struct {
	Description string `yaml:"description"`
	Detail      string `yaml:"detail"`
}

// profile holds the sampling pools for one side of the conversation.
type profile struct {
	Characteristics []string `yaml:"characteristics"`
	Styles          []Trait  `yaml:"conversational_styles"`
	Emotions        []Trait  `yaml:"emotional_statuses"`
	Experience      []string `yaml:"experience"`
	Goals           []string `yaml:"goals"`
}

type mediaType struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// prompts are the per-scenario instruction templates. Scenario effects are
// carried entirely by this data; the engine never branches on scenario names.
type prompts struct {
	Service    string `yaml:"service"`
	ServiceRAG string `yaml:"service_rag"`
	Customer   string `yaml:"customer"`
	Opening    string `yaml:"opening"`
	Moderator  string `yaml:"moderator"`
	Critic     string `yaml:"critic"`
	Summary    string `yaml:"summary"`
}

// bundle is the on-disk shape of a scenario configuration file.
type bundle struct {
	CompanyNames         []string            `yaml:"company_names"`
	PersonNames          []string            `yaml:"person_names"`
	BotNames             []string            `yaml:"bot_names"`
	Tasks                map[string][]string `yaml:"tasks"`
	MediaTypes           []mediaType         `yaml:"media_types"`
	FixedMediaType       string              `yaml:"fixed_media_type"`
	ServiceAgentProfile  profile             `yaml:"service_agent_profile"`
	CustomerAgentProfile profile             `yaml:"customer_agent_profile"`
	Prompts              prompts             `yaml:"prompts"`
}

func (b *bundle) validate(name string) error {
	switch {
	case len(b.CompanyNames) == 0:
		return core.Configf("scenario %s: company_names is empty", name)
	case len(b.PersonNames) == 0:
		return core.Configf("scenario %s: person_names is empty", name)
	case len(b.Tasks) == 0:
		return core.Configf("scenario %s: tasks is empty", name)
	case len(b.MediaTypes) == 0:
		return core.Configf("scenario %s: media_types is empty", name)
	case b.Prompts.Service == "" || b.Prompts.Customer == "" || b.Prompts.Opening == "":
		return core.Configf("scenario %s: prompts.service, prompts.customer and prompts.opening are required", name)
	}
	return nil
}

// Scenario is an immutable, named bundle of sampled environment parameters
// conditioning one run. Prompt templates render against the sampled settings.
type Scenario struct {
	Name     string
	Settings core.InputSettings

	prompts prompts
}

// Options configure scenario loading.
type Options struct {
	// Dir overrides the embedded bundles with an external directory
	// containing <name>.yaml files.
	Dir string
	// Rand drives component sampling. Defaults to a time-seeded source;
	// inject a fixed seed for reproducible runs.
	Rand *rand.Rand
}

// WithDir loads bundles from dir instead of the embedded defaults.
func WithDir(dir string) func(o *Options) {
	return func(o *Options) { o.Dir = dir }
}

// WithSeed makes sampling deterministic for the given seed.
func WithSeed(seed int64) func(o *Options) {
	return func(o *Options) { o.Rand = rand.New(rand.NewSource(seed)) }
}

// Load validates the scenario name against the closed set, reads its bundle
// and samples one value per persona component. Each call yields a freshly
// sampled Scenario; the result is read-only for the run's duration.
func Load(name string, optFns ...func(o *Options)) (*Scenario, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if !known(name) {
		return nil, core.Configf("unknown scenario %q (recognized: %v)", name, Names())
	}

	b, err := readBundle(name, opts.Dir)
	if err != nil {
		return nil, err
	}

	if err := b.validate(name); err != nil {
		return nil, err
	}

	return sample(name, b, opts.Rand), nil
}

func readBundle(name, dir string) (*bundle, error) {
	var (
		raw []byte
		err error
	)

	if dir != "" {
		raw, err = os.ReadFile(filepath.Join(dir, name+".yaml"))
	} else {
		raw, err = bundleFS.ReadFile("config/" + name + ".yaml")
	}
	if err != nil {
		return nil, core.Configf("scenario %s: reading bundle: %v", name, err)
	}

	var b bundle
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return nil, core.Configf("scenario %s: parsing bundle: %v", name, err)
	}

	return &b, nil
}

// sample draws one value per component. Service agent names come from
// bot_names when the bundle provides them (the aggressive scenarios pair the
// customer with an explicitly bot-named agent).
func sample(name string, b *bundle, r *rand.Rand) *Scenario {
	serviceNames := b.PersonNames
	if len(b.BotNames) > 0 {
		serviceNames = b.BotNames
	}

	topics := make([]string, 0, len(b.Tasks))
	for topic := range b.Tasks {
		topics = append(topics, topic)
	}
	sort.Strings(topics) // map order is random; keep sampling seed-stable

	topic := pick(r, topics)
	task := pick(r, b.Tasks[topic])

	media := pickMedia(r, b)

	service := sampleProfile(r, b.ServiceAgentProfile)
	customer := sampleProfile(r, b.CustomerAgentProfile)

	return &Scenario{
		Name: name,
		Settings: core.InputSettings{
			Bank:             pick(r, b.CompanyNames),
			CustomerName:     pick(r, b.PersonNames),
			ServiceAgentName: pick(r, serviceNames),
			Task:             task,
			MediaType:        media.Type,
			MediaDescription: media.Description,
			ServiceAgent:     service,
			CustomerAgent:    customer,
		},
		prompts: b.Prompts,
	}
}

func pickMedia(r *rand.Rand, b *bundle) mediaType {
	if b.FixedMediaType != "" {
		for _, mt := range b.MediaTypes {
			if mt.Type == b.FixedMediaType {
				return mt
			}
		}
	}
	return b.MediaTypes[r.Intn(len(b.MediaTypes))]
}

func sampleProfile(r *rand.Rand, p profile) core.PersonaSettings {
	style := pickTrait(r, p.Styles)
	emotion := pickTrait(r, p.Emotions)

	return core.PersonaSettings{
		Characteristic: pick(r, p.Characteristics),
		Style:          formatTrait(style),
		Emotion:        formatTrait(emotion),
		Experience:     pick(r, p.Experience),
		Goal:           pick(r, p.Goals),
	}
}

func pick(r *rand.Rand, values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[r.Intn(len(values))]
}

func pickTrait(r *rand.Rand, traits []Trait) Trait {
	if len(traits) == 0 {
		return Trait{}
	}
	return traits[r.Intn(len(traits))]
}

func formatTrait(t Trait) string {
	if t.Detail == "" {
		return t.Description
	}
	return fmt.Sprintf("%s: %s", t.Description, t.Detail)
}

// templateData exposes the sampled settings to prompt templates.
func (s *Scenario) templateData() map[string]any {
	return map[string]any{
		"Bank":                   s.Settings.Bank,
		"CustomerName":           s.Settings.CustomerName,
		"ServiceAgentName":       s.Settings.ServiceAgentName,
		"Task":                   s.Settings.Task,
		"MediaType":              s.Settings.MediaType,
		"MediaDescription":       s.Settings.MediaDescription,
		"ServiceCharacteristic":  s.Settings.ServiceAgent.Characteristic,
		"ServiceStyle":           s.Settings.ServiceAgent.Style,
		"ServiceEmotion":         s.Settings.ServiceAgent.Emotion,
		"ServiceExperience":      s.Settings.ServiceAgent.Experience,
		"ServiceGoal":            s.Settings.ServiceAgent.Goal,
		"CustomerCharacteristic": s.Settings.CustomerAgent.Characteristic,
		"CustomerStyle":          s.Settings.CustomerAgent.Style,
		"CustomerEmotion":        s.Settings.CustomerAgent.Emotion,
		"CustomerExperience":     s.Settings.CustomerAgent.Experience,
		"CustomerGoal":           s.Settings.CustomerAgent.Goal,
	}
}

func (s *Scenario) render(tmpl string) (string, error) {
	out, err := util.RenderTemplate(tmpl, s.templateData())
	if err != nil {
		return "", core.Configf("scenario %s: rendering prompt: %v", s.Name, err)
	}
	return out, nil
}

// ServiceInstructions renders the system prompt for the simple service agent.
func (s *Scenario) ServiceInstructions() (string, error) {
	return s.render(s.prompts.Service)
}

// RAGInstructions renders the system prompt for the retrieval-augmented
// service agent. Falls back to the plain service prompt when the bundle does
// not define one.
func (s *Scenario) RAGInstructions() (string, error) {
	if s.prompts.ServiceRAG == "" {
		return s.render(s.prompts.Service)
	}
	return s.render(s.prompts.ServiceRAG)
}

// CustomerInstructions renders the system prompt for the customer agent.
func (s *Scenario) CustomerInstructions() (string, error) {
	return s.render(s.prompts.Customer)
}

// OpeningPrompt renders the one-shot prompt used to generate the customer's
// conversation-opening message.
func (s *Scenario) OpeningPrompt() (string, error) {
	return s.render(s.prompts.Opening)
}

// ModeratorInstructions renders the system prompt for the society-of-mind
// moderator.
func (s *Scenario) ModeratorInstructions() (string, error) {
	return s.render(s.prompts.Moderator)
}

// CriticInstructions renders the system prompt for the society-of-mind
// critic sub-agent.
func (s *Scenario) CriticInstructions() (string, error) {
	return s.render(s.prompts.Critic)
}

// SummaryPrompt renders the post-run reflection summary prompt. Empty when
// the bundle does not request summaries.
func (s *Scenario) SummaryPrompt() (string, error) {
	if s.prompts.Summary == "" {
		return "", nil
	}
	return s.render(s.prompts.Summary)
}
