// internal/blockchain/solbc/endpoint_pool.go
package solbc

import (
	"strings"
	"sync"
)

// EndpointPool раздаёт RPC endpoint'ы из rpc_list по кругу.
// Используется, когда в запросе endpoint не указан.
type EndpointPool struct {
	endpoints []string
	mutex     sync.Mutex
	index     int
}

func NewEndpointPool(rpcList []string) *EndpointPool {
	var endpoints []string
	for _, url := range rpcList {
		if url = strings.TrimSpace(url); url != "" {
			endpoints = append(endpoints, url)
		}
	}
	return &EndpointPool{endpoints: endpoints}
}

// Next следующий endpoint; пустая строка, если список пуст
func (p *EndpointPool) Next() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.endpoints) == 0 {
		return ""
	}
	endpoint := p.endpoints[p.index]
	p.index = (p.index + 1) % len(p.endpoints)
	return endpoint
}

// Len число endpoint'ов в пуле
func (p *EndpointPool) Len() int {
	return len(p.endpoints)
}
