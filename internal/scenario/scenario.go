package scenario

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Scenario is one loaded scenario file.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description"`

	// Owner is the orchestrator owner, as an account name or literal address.
	Owner string `yaml:"owner"`

	// Start is the manual clock's initial instant, RFC 3339 UTC.
	Start time.Time `yaml:"start"`

	// Accounts maps symbolic names to addresses. Steps may reference either.
	Accounts map[string]string `yaml:"accounts"`

	// Beacons are the exactly-two recognized beacon pairs.
	Beacons []BeaconPair `yaml:"beacons"`

	// Deployed lists addresses granted deployed code before the first step.
	// Emergency implementations are always deployed; this covers the rest.
	Deployed []string `yaml:"deployed,omitempty"`

	// Steps is the operation sequence.
	Steps []Step `yaml:"steps"`
}

// BeaconPair binds a recognized beacon to its emergency implementation.
type BeaconPair struct {
	Beacon    string `yaml:"beacon"`
	Emergency string `yaml:"emergency"`
}

// Step is one operation invocation, clock advance, or fault injection.
// Which fields are meaningful depends on Op; the loader validates per-op
// requirements.
type Step struct {
	Op string `yaml:"op"`

	Caller         string `yaml:"caller,omitempty"`
	Controller     string `yaml:"controller,omitempty"`
	Beacon         string `yaml:"beacon,omitempty"`
	Implementation string `yaml:"implementation,omitempty"`
	NewOwner       string `yaml:"new_owner,omitempty"`
	Heartbeater    string `yaml:"heartbeater,omitempty"`

	Selector   string   `yaml:"selector,omitempty"`
	Interval   Duration `yaml:"interval,omitempty"`
	Expiration Duration `yaml:"expiration,omitempty"`
	Extra      Duration `yaml:"extra,omitempty"`
	Armed      bool     `yaml:"armed,omitempty"`
	WillAccept bool     `yaml:"will_accept,omitempty"`

	// By is the clock advance for op: advance.
	By Duration `yaml:"by,omitempty"`

	// Expect is "ok" (or empty) for success, otherwise a governance error
	// code such as NOT_READY.
	Expect string `yaml:"expect,omitempty"`
}

// Duration is a time.Duration that unmarshals from Go duration strings in
// YAML ("168h", "30m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads, schema-validates, and decodes a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return Parse(path, data)
}

// Parse validates raw scenario YAML against the embedded CUE schema, then
// decodes it strictly. The schema pass catches bad op names and malformed
// addresses; the strict decode catches unknown fields.
func Parse(filename string, data []byte) (*Scenario, error) {
	if err := validateSchema(filename, data); err != nil {
		return nil, err
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}
	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("parse scenario YAML: %w", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("build scenario value: %w", err)
	}
	if err := schema.Unify(doc).Validate(); err != nil {
		return fmt.Errorf("scenario does not match schema: %w", err)
	}
	return nil
}

// validateScenario checks cross-field requirements the schema cannot express.
func validateScenario(s *Scenario) error {
	if len(s.Beacons) != 2 {
		return fmt.Errorf("exactly two beacon pairs are required, got %d", len(s.Beacons))
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("steps[%d] (%s): %s is required", index, st.Op, field)
		}
		return nil
	}
	switch st.Op {
	case "advance":
		if st.By == 0 {
			return fmt.Errorf("steps[%d] (advance): by is required", index)
		}
		return nil
	case "break_beacon":
		return need("beacon", st.Beacon)
	case "heartbeat", "accept_ownership":
		return need("caller", st.Caller)
	case "transfer_ownership":
		return firstErr(need("caller", st.Caller), need("new_owner", st.NewOwner))
	case "new_heartbeater":
		return firstErr(need("caller", st.Caller), need("heartbeater", st.Heartbeater))
	case "agree_to_accept_ownership":
		return firstErr(need("caller", st.Caller), need("controller", st.Controller))
	case "initiate_transfer_controller_ownership", "transfer_controller_ownership":
		return firstErr(
			need("caller", st.Caller),
			need("controller", st.Controller),
			need("new_owner", st.NewOwner),
		)
	case "initiate_modify_timelock_interval", "modify_timelock_interval",
		"initiate_modify_timelock_expiration", "modify_timelock_expiration":
		return firstErr(need("caller", st.Caller), need("selector", st.Selector))
	case "initiate_upgrade", "upgrade":
		return firstErr(
			need("caller", st.Caller),
			need("controller", st.Controller),
			need("beacon", st.Beacon),
			need("implementation", st.Implementation),
		)
	case "rollback", "arm_contingency", "activate_contingency":
		return firstErr(
			need("caller", st.Caller),
			need("controller", st.Controller),
			need("beacon", st.Beacon),
		)
	case "exit_contingency":
		return firstErr(
			need("caller", st.Caller),
			need("controller", st.Controller),
			need("beacon", st.Beacon),
			need("implementation", st.Implementation),
		)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
