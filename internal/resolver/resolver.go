// Package resolver keeps addresses of blocked domains in the dnsresolver table.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/store"
)

// Errors
var (
	ErrNoNameservers = errors.New("no nameservers")
	ErrLookup        = errors.New("lookup failed")
)

// Options - resolver settings.
type Options struct {
	Nameservers []string
	Concurrency int
	Timeout     time.Duration
}

// Answer - one resolved address.
type Answer struct {
	IP      string
	Mask    int
	Version int
}

// Stats - what a run did.
type Stats struct {
	Domains int
	Failed  int
	Added   int
	Purged  int
}

// Resolver - resolves active domains and reconciles dnsresolver rows.
type Resolver struct {
	st     *store.Store
	client *dns.Client
	opts   Options
	now    func() time.Time
}

// New - resolver over the store.
func New(st *store.Store, opts Options) (*Resolver, error) {
	if len(opts.Nameservers) == 0 {
		return nil, ErrNoNameservers
	}

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	nameservers := make([]string, 0, len(opts.Nameservers))
	for _, ns := range opts.Nameservers {
		nameservers = append(nameservers, hostPort(ns))
	}

	opts.Nameservers = nameservers

	return &Resolver{
		st:     st,
		client: &dns.Client{Timeout: opts.Timeout},
		opts:   opts,
		now:    time.Now,
	}, nil
}

type lookupResult struct {
	answers []Answer
	err     error
}

// Run - resolve every active domain and store what changed.
// Domains that failed to resolve keep their rows.
func (r *Resolver) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	domains, err := r.st.ActiveDomains(ctx)
	if err != nil {
		return stats, err
	}

	stats.Domains = len(domains)
	results := make(map[string]lookupResult, len(domains))
	answers := make([]lookupResult, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, domain := range domains {
		i, domain := i, domain
		g.Go(func() error {
			a, err := r.Lookup(gctx, domain)
			answers[i] = lookupResult{answers: a, err: err}

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	for i, domain := range domains {
		if answers[i].err != nil {
			logger.Debug.Printf("Resolve %s: %s\n", domain, answers[i].err)

			stats.Failed++
		}

		results[domain] = answers[i]
	}

	epoch := r.now().Unix()

	err = r.st.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return reconcile(tx, results, epoch, &stats)
	})
	if err != nil {
		return Stats{}, fmt.Errorf("resolver reconcile: %w", err)
	}

	code, err := r.st.Get(ctx, store.ParamLastCode)
	if err != nil {
		return stats, err
	}

	if err := r.st.AddHistory(ctx, code, false, true, r.now()); err != nil {
		return stats, err
	}

	logger.Info.Printf("Resolver: domains: %d failed: %d added: %d purged: %d\n",
		stats.Domains, stats.Failed, stats.Added, stats.Purged)

	return stats, nil
}

func reconcile(tx *gorm.DB, results map[string]lookupResult, epoch int64, stats *Stats) error {
	active, err := store.ActiveResolved(tx)
	if err != nil {
		return err
	}

	current := make(map[string]map[string]store.DNSResolver)

	for _, row := range active {
		if current[row.Domain] == nil {
			current[row.Domain] = make(map[string]store.DNSResolver)
		}

		current[row.Domain][row.IP] = row
	}

	var (
		purge []uint64
		add   []store.DNSResolver
	)

	for domain, rows := range current {
		res, ok := results[domain]
		if ok && res.err != nil {
			continue
		}

		resolved := make(map[string]struct{}, len(res.answers))
		for _, a := range res.answers {
			resolved[a.IP] = struct{}{}
		}

		for ip, row := range rows {
			if _, ok := resolved[ip]; !ok {
				purge = append(purge, row.ID)
			}
		}
	}

	for domain, res := range results {
		if res.err != nil {
			continue
		}

		for _, a := range res.answers {
			if _, ok := current[domain][a.IP]; ok {
				continue
			}

			add = append(add, store.DNSResolver{
				Domain:  domain,
				IP:      a.IP,
				Mask:    a.Mask,
				Version: a.Version,
				Add:     epoch,
			})
		}
	}

	if err := store.PurgeResolved(tx, purge, epoch); err != nil {
		return err
	}

	if err := store.InsertResolved(tx, add); err != nil {
		return err
	}

	stats.Purged = len(purge)
	stats.Added = len(add)

	return nil
}

// Lookup - A and AAAA addresses of domain. A missing domain has no addresses.
func (r *Resolver) Lookup(ctx context.Context, domain string) ([]Answer, error) {
	var answers []Answer

	seen := make(map[string]struct{})

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		rrs, err := r.exchange(ctx, domain, qtype)
		if err != nil {
			return nil, err
		}

		for _, rr := range rrs {
			var a Answer

			switch rec := rr.(type) {
			case *dns.A:
				a = Answer{IP: rec.A.String(), Mask: 32, Version: 4}
			case *dns.AAAA:
				a = Answer{IP: rec.AAAA.String(), Mask: 128, Version: 6}
			default:
				continue
			}

			if _, ok := seen[a.IP]; ok {
				continue
			}

			seen[a.IP] = struct{}{}
			answers = append(answers, a)
		}
	}

	return answers, nil
}

// exchange - ask nameservers in order until one answers.
func (r *Resolver) exchange(ctx context.Context, domain string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	var lastErr error

	for _, ns := range r.opts.Nameservers {
		in, _, err := r.client.ExchangeContext(ctx, msg, ns)
		if err != nil {
			lastErr = err

			if ctx.Err() != nil {
				break
			}

			continue
		}

		switch in.Rcode {
		case dns.RcodeSuccess:
			return in.Answer, nil
		case dns.RcodeNameError:
			return nil, nil
		default:
			lastErr = fmt.Errorf("%s from %s", dns.RcodeToString[in.Rcode], ns)
		}
	}

	return nil, fmt.Errorf("%w: %s %s: %w", ErrLookup, domain, dns.TypeToString[qtype], lastErr)
}

// hostPort - nameserver with the default port.
func hostPort(ns string) string {
	if _, _, err := net.SplitHostPort(ns); err == nil {
		return ns
	}

	return net.JoinHostPort(ns, "53")
}
