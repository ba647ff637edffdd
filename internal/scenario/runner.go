package scenario

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/roach88/beaconctl/internal/chain"
	"github.com/roach88/beaconctl/internal/governance"
	"github.com/roach88/beaconctl/internal/testutil"
)

// Result is the outcome of running a scenario: per-step outcomes and the full
// event trace, plus the live fixtures for further assertions.
type Result struct {
	Scenario *Scenario
	Steps    []StepOutcome
	Events   []governance.Event

	Network      *chain.MemNetwork
	Clock        *testutil.ManualClock
	Orchestrator *governance.Orchestrator
}

// StepOutcome records what one step actually did.
type StepOutcome struct {
	Index   int
	Op      string
	Outcome string // "ok", a governance error code, or "ERROR"
	Message string // error text when Outcome is not "ok"
}

// Run executes a scenario against a fresh in-memory network, manual clock,
// fixed id generator, and memory state. Returns an error when a step's
// outcome does not match its expect clause, so a passing Run means the whole
// script behaved as declared.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	r := &runner{
		scenario: s,
		network:  chain.NewMemNetwork(),
		clock:    testutil.NewManualClock(s.Start),
	}
	if err := r.setUp(ctx); err != nil {
		return nil, err
	}

	sink := governance.NewMemorySink()
	owner, err := r.resolve(s.Owner)
	if err != nil {
		return nil, fmt.Errorf("resolve owner: %w", err)
	}
	orch, err := governance.New(ctx, governance.Config{
		Store:   governance.NewMemoryState(),
		Network: r.network,
		Owner:   owner,
		Beacons: r.constants,
		Clock:   r.clock,
		Events:  sink,
		IDs:     testutil.NewFixedIDGenerator("evt"),
		Seq:     governance.NewSeqClock(),
	})
	if err != nil {
		return nil, fmt.Errorf("construct orchestrator: %w", err)
	}
	r.orch = orch

	result := &Result{
		Scenario:     s,
		Network:      r.network,
		Clock:        r.clock,
		Orchestrator: orch,
	}
	for i, step := range s.Steps {
		outcome := r.execute(ctx, &step)
		outcome.Index = i
		result.Steps = append(result.Steps, outcome)

		want := step.Expect
		if want == "" {
			want = "ok"
		}
		if outcome.Outcome != want {
			return nil, fmt.Errorf("steps[%d] (%s): expected %s, got %s (%s)",
				i, step.Op, want, outcome.Outcome, outcome.Message)
		}
	}
	result.Events = sink.Events()
	return result, nil
}

type runner struct {
	scenario  *Scenario
	network   *chain.MemNetwork
	clock     *testutil.ManualClock
	orch      *governance.Orchestrator
	constants [2]governance.BeaconConstant
}

// setUp installs deployed code, registers beacons, and derives the beacon
// constants. Code bytes are derived from the address so code hashes are
// stable across runs without the scenario having to spell them out.
func (r *runner) setUp(_ context.Context) error {
	for i, pair := range r.scenario.Beacons {
		beacon, err := r.resolve(pair.Beacon)
		if err != nil {
			return fmt.Errorf("resolve beacons[%d].beacon: %w", i, err)
		}
		emergency, err := r.resolve(pair.Emergency)
		if err != nil {
			return fmt.Errorf("resolve beacons[%d].emergency: %w", i, err)
		}
		code := codeFor(emergency)
		r.network.RegisterBeacon(beacon)
		r.network.SetCode(emergency, code)
		r.constants[i] = governance.BeaconConstant{
			Beacon:                  beacon,
			EmergencyImplementation: emergency,
			CodeHash:                sha256.Sum256(code),
		}
	}
	for i, ref := range r.scenario.Deployed {
		addr, err := r.resolve(ref)
		if err != nil {
			return fmt.Errorf("resolve deployed[%d]: %w", i, err)
		}
		r.network.SetCode(addr, codeFor(addr))
	}
	return nil
}

func (r *runner) execute(ctx context.Context, st *Step) StepOutcome {
	err := r.dispatch(ctx, st)
	out := StepOutcome{Op: st.Op, Outcome: "ok"}
	if err != nil {
		out.Message = err.Error()
		if code := governance.CodeOf(err); code != "" {
			out.Outcome = string(code)
		} else {
			out.Outcome = "ERROR"
		}
	}
	return out
}

func (r *runner) dispatch(ctx context.Context, st *Step) error {
	switch st.Op {
	case "advance":
		r.clock.Advance(st.By.Std())
		return nil
	case "break_beacon":
		beacon, err := r.resolve(st.Beacon)
		if err != nil {
			return err
		}
		r.network.BreakBeacon(beacon, errors.New("beacon read reverted"))
		return nil
	}

	addrs, err := r.resolveStep(st)
	if err != nil {
		return err
	}
	switch st.Op {
	case "initiate_upgrade":
		return r.orch.InitiateUpgrade(ctx, addrs.caller, addrs.controller, addrs.beacon, addrs.implementation, st.Extra.Std())
	case "upgrade":
		return r.orch.Upgrade(ctx, addrs.caller, addrs.controller, addrs.beacon, addrs.implementation)
	case "rollback":
		return r.orch.Rollback(ctx, addrs.caller, addrs.controller, addrs.beacon)
	case "transfer_ownership":
		return r.orch.TransferOwnership(ctx, addrs.caller, addrs.newOwner)
	case "accept_ownership":
		return r.orch.AcceptOwnership(ctx, addrs.caller)
	case "agree_to_accept_ownership":
		return r.orch.AgreeToAcceptOwnership(ctx, addrs.caller, addrs.controller, st.WillAccept)
	case "initiate_transfer_controller_ownership":
		return r.orch.InitiateTransferControllerOwnership(ctx, addrs.caller, addrs.controller, addrs.newOwner, st.Extra.Std())
	case "transfer_controller_ownership":
		return r.orch.TransferControllerOwnership(ctx, addrs.caller, addrs.controller, addrs.newOwner)
	case "initiate_modify_timelock_interval":
		return r.orch.InitiateModifyTimelockInterval(ctx, addrs.caller, governance.Selector(st.Selector), st.Interval.Std(), st.Extra.Std())
	case "modify_timelock_interval":
		return r.orch.ModifyTimelockInterval(ctx, addrs.caller, governance.Selector(st.Selector), st.Interval.Std())
	case "initiate_modify_timelock_expiration":
		return r.orch.InitiateModifyTimelockExpiration(ctx, addrs.caller, governance.Selector(st.Selector), st.Expiration.Std(), st.Extra.Std())
	case "modify_timelock_expiration":
		return r.orch.ModifyTimelockExpiration(ctx, addrs.caller, governance.Selector(st.Selector), st.Expiration.Std())
	case "heartbeat":
		return r.orch.Heartbeat(ctx, addrs.caller)
	case "new_heartbeater":
		return r.orch.NewHeartbeater(ctx, addrs.caller, addrs.heartbeater)
	case "arm_contingency":
		return r.orch.ArmAdharmaContingency(ctx, addrs.caller, addrs.controller, addrs.beacon, st.Armed)
	case "activate_contingency":
		return r.orch.ActivateAdharmaContingency(ctx, addrs.caller, addrs.controller, addrs.beacon)
	case "exit_contingency":
		return r.orch.ExitAdharmaContingency(ctx, addrs.caller, addrs.controller, addrs.beacon, addrs.implementation)
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
}

type stepAddrs struct {
	caller         chain.Address
	controller     chain.Address
	beacon         chain.Address
	implementation chain.Address
	newOwner       chain.Address
	heartbeater    chain.Address
}

func (r *runner) resolveStep(st *Step) (stepAddrs, error) {
	var (
		out stepAddrs
		err error
	)
	fields := []struct {
		name string
		ref  string
		dst  *chain.Address
	}{
		{"caller", st.Caller, &out.caller},
		{"controller", st.Controller, &out.controller},
		{"beacon", st.Beacon, &out.beacon},
		{"implementation", st.Implementation, &out.implementation},
		{"new_owner", st.NewOwner, &out.newOwner},
		{"heartbeater", st.Heartbeater, &out.heartbeater},
	}
	for _, f := range fields {
		if f.ref == "" {
			continue
		}
		if *f.dst, err = r.resolve(f.ref); err != nil {
			return out, fmt.Errorf("resolve %s: %w", f.name, err)
		}
	}
	return out, nil
}

func (r *runner) resolve(ref string) (chain.Address, error) {
	return ResolveAddress(r.scenario, ref)
}

// ResolveAddress maps an account name from the scenario's accounts table to
// its address, or parses ref as a literal address.
func ResolveAddress(s *Scenario, ref string) (chain.Address, error) {
	if hex, ok := s.Accounts[ref]; ok {
		return chain.ParseAddress(hex)
	}
	return chain.ParseAddress(ref)
}

// codeFor derives deterministic fake deployed code from an address.
func codeFor(addr chain.Address) []byte {
	return []byte("code:" + addr.String())
}
