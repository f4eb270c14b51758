package usecase

import (
	"os"
	"strconv"
)

// processTag names this worker process in lease ownership. Two processes
// running the same stage must not share an owner string, or the claim
// predicate's same-owner clause would let them both hold one match.
var processTag = func() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + ":" + strconv.Itoa(os.Getpid())
}()

// leaseOwner scopes a stage tag to this process. Re-entry within the process
// (a retried run) reuses the claim; a peer process waits for the TTL.
func leaseOwner(stage string) string {
	return stage + "/" + processTag
}
