// Package deploypolicy implements the pluggable deployer policy (spec
// §6's "deployer-plugin" config key) and the auto_deploy operation (spec
// §8 S6). auto_deploy(resource, count, delta, site_clients) selects
// which of a Resource's existing full-replica Assignments should be
// demoted to a diskless "site client" (or unassigned outright) so that
// no more than count+delta full replicas remain.
//
// Balanced is the one shipped Policy, grounded on the teacher's
// pkg/scheduler.selectNode: a single pass picking the lowest-weight
// candidate with ties resolved by keeping the first one encountered,
// rather than a sort. Its optional YAML weight/site-client-threshold
// document is loaded with gopkg.in/yaml.v3, the teacher dependency that
// otherwise has no natural home in this domain.
package deploypolicy
