package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Browser finds provisioning endpoints.
type Browser interface {
	// Browse streams services as they are discovered. The channel is
	// closed when ctx ends.
	Browse(ctx context.Context) (<-chan *Service, error)

	// Find returns the service with the given instance name.
	Find(ctx context.Context, name string) (*Service, error)
}

// Advertiser publishes a provisioning endpoint.
type Advertiser interface {
	Advertise(ctx context.Context, info *AdvertiseInfo) error
	Stop() error
}

// AdvertiseInfo describes the endpoint to publish.
type AdvertiseInfo struct {
	InstanceName string
	Port         uint16
	Paths        []string
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Timeout bounds Find when ctx has no deadline.
	Timeout time.Duration

	// Interface limits browsing to one interface. Empty means all.
	Interface string
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface limits advertising to one interface. Empty means all.
	Interface string

	// TTL is the DNS record TTL.
	TTL time.Duration
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{Timeout: BrowseTimeout}
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: 120 * time.Second}
}

// MDNSBrowser implements Browser using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	if config.Timeout <= 0 {
		config.Timeout = BrowseTimeout
	}
	return &MDNSBrowser{config: config}
}

// Browse streams provisioning endpoints. Services are aggregated by
// instance name: addresses seen on several interfaces are merged into the
// entry that was already emitted.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *Service, error) {
	out := make(chan *Service)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		agg := newAggregator()
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc, isNew := agg.add(entryToService(entry))
				if !isNew {
					continue
				}
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}
			case entry, ok := <-removed:
				if !ok {
					continue
				}
				agg.remove(entry.Instance, entryAddresses(entry))
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.options()...)
	}()
	return out, nil
}

// Find browses until the named instance shows up. Instance names are
// compared case-insensitively.
func (b *MDNSBrowser) Find(ctx context.Context, name string) (*Service, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	services, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for svc := range services {
		if strings.EqualFold(svc.InstanceName, name) {
			return svc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Collect browses for d and returns everything seen, one entry per
// instance.
func Collect(ctx context.Context, b Browser, d time.Duration) ([]*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	services, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	var result []*Service
	for svc := range services {
		result = append(result, svc)
	}
	return result, nil
}

func (b *MDNSBrowser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if ifaces := lookupInterface(b.config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	return opts
}

// MDNSAdvertiser implements Advertiser using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// Advertise registers the endpoint, replacing any previous registration.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *AdvertiseInfo) error {
	if err := ValidateInstanceName(info.InstanceName); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.InstanceName,
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(EncodeEndpointTXT(info.Paths)),
		lookupInterface(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register provisioning service: %w", err)
	}
	a.server = server
	return nil
}

// Stop withdraws the registration.
func (a *MDNSAdvertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	return nil
}

// lookupInterface returns the named interface, or nil for all interfaces.
func lookupInterface(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

func entryToService(entry *zeroconf.ServiceEntry) *Service {
	return &Service{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    entryAddresses(entry),
		Endpoints:    DecodeEndpointTXT(StringsToTXTRecords(entry.Text)),
	}
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// aggregator merges entries for the same instance seen on several
// interfaces.
type aggregator struct {
	services map[string]*Service
}

func newAggregator() *aggregator {
	return &aggregator{services: make(map[string]*Service)}
}

// add records svc and reports whether the instance is new.
func (a *aggregator) add(svc *Service) (*Service, bool) {
	if existing, found := a.services[svc.InstanceName]; found {
		existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
		return existing, false
	}
	a.services[svc.InstanceName] = svc
	return svc, true
}

// remove drops addrs from the instance and forgets it once none remain.
func (a *aggregator) remove(instance string, addrs []string) {
	existing, found := a.services[instance]
	if !found {
		return
	}
	existing.Addresses = removeAddresses(existing.Addresses, addrs)
	if len(existing.Addresses) == 0 {
		delete(a.services, instance)
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

func removeAddresses(addresses, gone []string) []string {
	toRemove := make(map[string]bool, len(gone))
	for _, addr := range gone {
		toRemove[addr] = true
	}
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

var (
	_ Browser    = (*MDNSBrowser)(nil)
	_ Advertiser = (*MDNSAdvertiser)(nil)
)
