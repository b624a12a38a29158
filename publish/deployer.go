package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	// ContractName is the artifact the deployer asks the toolkit for.
	ContractName = "NFTCollection"
	// AddressLabel precedes the deployed address on stdout.
	AddressLabel = "Raya Apes Contract Address:"
)

// ErrAlreadyRun is returned when Run is called on a Deployer that has
// already left the NotStarted state.
var ErrAlreadyRun = errors.New("deployer already run")

type (
	// Toolkit resolves contract factories by name.
	Toolkit interface {
		ContractFactory(ctx context.Context, name string) (Factory, error)
	}

	// Factory deploys new instances of one contract. Arguments are
	// positional constructor arguments.
	Factory interface {
		Deploy(ctx context.Context, args ...any) (*DeployedContract, error)
	}

	DeployedContract struct {
		Address string
		TxHash  string
	}

	Config struct {
		WhitelistAddress string
		MetadataURL      string
	}
)

// Validate reports which configuration values are missing. Run does not call
// it: empty values are handed to the toolkit as they are.
func (c Config) Validate() error {
	var missing []string
	if c.WhitelistAddress == "" {
		missing = append(missing, "WHITELIST_CONTRACT_ADDRESS")
	}
	if c.MetadataURL == "" {
		missing = append(missing, "METADATA_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DeploymentFailure is the single failure kind of a deployment. Stage only
// tells where it happened.
type DeploymentFailure struct {
	Stage string
	Err   error
}

func (e *DeploymentFailure) Error() string {
	return fmt.Sprintf("deployment failed (%s): %v", e.Stage, e.Err)
}

func (e *DeploymentFailure) Unwrap() error {
	return e.Err
}

type State int

const (
	NotStarted State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Deployer struct {
	toolkit Toolkit
	cfg     Config
	out     io.Writer
	log     *logrus.Entry

	mu    sync.Mutex
	state State
}

func NewDeployer(toolkit Toolkit, cfg Config, out io.Writer, log *logrus.Entry) *Deployer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Deployer{
		toolkit: toolkit,
		cfg:     cfg,
		out:     out,
		log:     log,
	}
}

func (d *Deployer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Deployer) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Run deploys ContractName once with (MetadataURL, WhitelistAddress) and
// writes the resulting address to the output writer. There are no retries.
func (d *Deployer) Run(ctx context.Context) (*DeployedContract, error) {
	d.mu.Lock()
	if d.state != NotStarted {
		d.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	d.state = Running
	d.mu.Unlock()

	contract, err := d.run(ctx)
	if err != nil {
		d.setState(Failed)
		d.log.WithError(err).Error("deployment failed")
		return nil, err
	}
	d.setState(Succeeded)
	return contract, nil
}

func (d *Deployer) run(ctx context.Context) (*DeployedContract, error) {
	log := d.log.WithField("contract", ContractName)

	factory, err := d.toolkit.ContractFactory(ctx, ContractName)
	if err != nil {
		return nil, &DeploymentFailure{Stage: "factory", Err: err}
	}

	log.WithFields(logrus.Fields{
		"metadata_url": d.cfg.MetadataURL,
		"whitelist":    d.cfg.WhitelistAddress,
	}).Info("deploying contract")

	contract, err := factory.Deploy(ctx, d.cfg.MetadataURL, d.cfg.WhitelistAddress)
	if err != nil {
		return nil, &DeploymentFailure{Stage: "deploy", Err: err}
	}
	if contract == nil {
		return nil, &DeploymentFailure{Stage: "deploy", Err: errors.New("toolkit returned no contract")}
	}

	log.WithFields(logrus.Fields{
		"address": contract.Address,
		"tx":      contract.TxHash,
	}).Info("contract deployed")

	if _, err := fmt.Fprintln(d.out, AddressLabel, contract.Address); err != nil {
		return nil, &DeploymentFailure{Stage: "report", Err: err}
	}
	return contract, nil
}
