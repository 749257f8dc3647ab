package hostname

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jsimonetti/rtnetlink"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const neighTTL = 30 * time.Second

// Neighbors resolves MAC addresses to the IP address the kernel's neighbor
// table holds for them. The table is re-read at most once every 30 seconds.
type Neighbors struct {
	list func() ([]rtnetlink.NeighMessage, error)
	now  func() time.Time

	mu     sync.Mutex
	loaded time.Time
	addrs  map[string]string
}

// NewNeighbors returns a Neighbors resolver backed by rtnetlink.
func NewNeighbors() *Neighbors {
	return &Neighbors{
		list:  listNeighbors,
		now:   time.Now,
		addrs: make(map[string]string),
	}
}

// Lookup returns the IP address of the device with the given MAC address,
// or an empty string if it has no neighbor entry.
func (n *Neighbors) Lookup(device string) string {

	n.mu.Lock()
	defer n.mu.Unlock()

	if now := n.now(); now.Sub(n.loaded) >= neighTTL {
		if err := n.refresh(); err != nil {
			log.Debugf("Listing neighbors: %s", err)
		}
		// Don't hammer netlink on persistent errors.
		n.loaded = now
	}

	return n.addrs[strings.ToLower(device)]
}

// refresh rebuilds the address index. Must be called with mu held.
func (n *Neighbors) refresh() error {

	msgs, err := n.list()
	if err != nil {
		return err
	}

	addrs := make(map[string]string, len(msgs))
	for _, m := range msgs {
		a := m.Attributes
		if a == nil || len(a.LLAddress) != 6 || a.Address == nil {
			continue
		}

		mac := a.LLAddress.String()
		// Prefer IPv4, devices usually hold several v6 addresses.
		if cur, ok := addrs[mac]; ok && net.ParseIP(cur).To4() != nil {
			continue
		}
		addrs[mac] = a.Address.String()
	}

	n.addrs = addrs

	return nil
}

func listNeighbors() ([]rtnetlink.NeighMessage, error) {

	c, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, errors.Wrap(err, "dialing rtnetlink")
	}
	defer c.Close()

	return c.Neigh.List()
}

// Chain is a Resolver returning the first name found by its members.
type Chain []Resolver

// Lookup queries all Resolvers in order.
func (c Chain) Lookup(device string) string {
	for _, r := range c {
		if n := r.Lookup(device); n != "" {
			return n
		}
	}
	return ""
}
