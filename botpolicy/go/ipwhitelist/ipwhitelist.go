// Package ipwhitelist maintains named allow-lists of IP addresses and
// implements the whitelist membership check consumed by botauth.
//
// Lists are declared in a JSON5 document:
//
//	{
//	  "whitelist": [
//	    {name: "corp-vpn", subnets: ["10.20.0.0/16", "192.168.4.7"]},
//	    {name: "lab", subnets: ["172.16.0.0/12"], includes: ["corp-vpn"]},
//	  ],
//	}
//
// A subnet is a CIDR block or a single IP address. A list may include other
// lists; inclusion cycles are rejected at load time.
package ipwhitelist

import (
	"context"
	"io"
	"net"
	"sort"
	"sync"

	"github.com/flynn/json5"
	fsnotify "gopkg.in/fsnotify.v1"

	"go.skia.org/fleet/go/skerr"
	"go.skia.org/fleet/go/sklog"
	"go.skia.org/fleet/go/util"
)

// Entry is one named allow-list in the whitelist document.
type Entry struct {
	// Name the list is referred to by, e.g. in auth.ip_whitelist.
	Name string `json:"name"`

	// Subnets lists CIDR blocks or single IP addresses.
	Subnets []string `json:"subnets"`

	// Includes pulls in the subnets of other named lists.
	Includes []string `json:"includes"`
}

// Document is the root of the whitelist file format.
type Document struct {
	Whitelist []Entry `json:"whitelist"`
}

// Whitelists answers IP membership questions for a set of named lists.
//
// It implements botauth.WhitelistChecker.
type Whitelists struct {
	lists map[string][]*net.IPNet
}

// New builds Whitelists from a parsed Document, resolving includes and
// rejecting unknown names, bad subnets, duplicate list names, and inclusion
// cycles.
func New(doc *Document) (*Whitelists, error) {
	byName := map[string]*Entry{}
	for i := range doc.Whitelist {
		e := &doc.Whitelist[i]
		if e.Name == "" {
			return nil, skerr.Fmt("whitelist #%d has no name", i+1)
		}
		if _, ok := byName[e.Name]; ok {
			return nil, skerr.Fmt("duplicate whitelist %q", e.Name)
		}
		byName[e.Name] = e
	}

	w := &Whitelists{
		lists: map[string][]*net.IPNet{},
	}
	for _, e := range doc.Whitelist {
		nets, err := resolve(e.Name, byName, map[string]bool{})
		if err != nil {
			return nil, skerr.Wrap(err)
		}
		w.lists[e.Name] = nets
	}
	return w, nil
}

// resolve flattens the subnets of the named list, following includes.
// visiting tracks the names on the current inclusion path for cycle
// detection.
func resolve(name string, byName map[string]*Entry, visiting map[string]bool) ([]*net.IPNet, error) {
	e, ok := byName[name]
	if !ok {
		return nil, skerr.Fmt("whitelist %q includes unknown whitelist", name)
	}
	if visiting[name] {
		return nil, skerr.Fmt("whitelist %q is part of an inclusion cycle", name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	ret := make([]*net.IPNet, 0, len(e.Subnets))
	for _, subnet := range e.Subnets {
		ipNet, err := parseSubnet(subnet)
		if err != nil {
			return nil, skerr.Wrapf(err, "whitelist %q", name)
		}
		ret = append(ret, ipNet)
	}
	for _, inc := range e.Includes {
		nets, err := resolve(inc, byName, visiting)
		if err != nil {
			return nil, skerr.Wrapf(err, "included from whitelist %q", name)
		}
		ret = append(ret, nets...)
	}
	return ret, nil
}

// parseSubnet accepts a CIDR block or a bare IP address, which is treated as
// a /32 (or /128 for IPv6) block.
func parseSubnet(s string) (*net.IPNet, error) {
	if _, ipNet, err := net.ParseCIDR(s); err == nil {
		return ipNet, nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, skerr.Fmt("%q is neither a CIDR block nor an IP address", s)
	}
	bits := len(ip) * 8
	if v4 := ip.To4(); v4 != nil {
		ip = v4
		bits = 32
	}
	return &net.IPNet{
		IP:   ip,
		Mask: net.CIDRMask(bits, bits),
	}, nil
}

// IPInWhitelist returns true if the given IP belongs to the named list.
// Unknown names and unparsable IPs are not members of anything.
func (w *Whitelists) IPInWhitelist(_ context.Context, name, ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, ipNet := range w.lists[name] {
		if ipNet.Contains(parsed) {
			return true
		}
	}
	return false
}

// Names returns the names of all known lists, sorted.
func (w *Whitelists) Names() []string {
	ret := make([]string, 0, len(w.lists))
	for name := range w.lists {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// WhitelistsFromFile reads named allow-lists from a JSON5 file. The file is
// watched for changes and re-read when they occur; a change that fails to
// parse is logged and the previous lists stay active.
type WhitelistsFromFile struct {
	filename string
	mutex    sync.RWMutex
	current  *Whitelists
}

// NewFromFile creates a new *WhitelistsFromFile from the given filename.
func NewFromFile(filename string) (*WhitelistsFromFile, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, skerr.Wrapf(err, "creating watcher")
	}
	w := &WhitelistsFromFile{
		filename: filename,
	}
	if err := w.reload(); err != nil {
		util.Close(watcher)
		return nil, skerr.Wrapf(err, "initially loading whitelists from %q", filename)
	}
	go func() {
		for {
			select {
			case <-watcher.Events:
				if err := w.reload(); err != nil {
					sklog.Errorf("Failed to reload whitelist file %q: %s", filename, err)
				}
			case err := <-watcher.Errors:
				sklog.Errorf("Watcher error %q: %s", filename, err)
			}
		}
	}()
	if err := watcher.Add(filename); err != nil {
		util.Close(watcher)
		return nil, skerr.Wrapf(err, "watching whitelist file %q", filename)
	}
	return w, nil
}

func (w *WhitelistsFromFile) reload() error {
	var doc Document
	err := util.WithReadFile(w.filename, func(r io.Reader) error {
		return json5.NewDecoder(r).Decode(&doc)
	})
	if err != nil {
		return skerr.Wrap(err)
	}
	next, err := New(&doc)
	if err != nil {
		return skerr.Wrap(err)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.current = next
	return nil
}

// IPInWhitelist implements the same check as Whitelists against the most
// recently loaded file contents.
func (w *WhitelistsFromFile) IPInWhitelist(ctx context.Context, name, ip string) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.current.IPInWhitelist(ctx, name, ip)
}
