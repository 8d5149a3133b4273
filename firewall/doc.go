// Package firewall opens and revokes the host firewall rules a LetsShare
// receiver needs while it waits for its one peer.
//
// Provisioning is best effort: callers log a failure and carry on, since the
// listener may still be reachable without explicit rules.
//
//	p := firewall.NewCommandProvisioner(firewall.DefaultOpenCommands(), firewall.DefaultRevokeCommands())
//	if err := p.OpenInboundOutbound(5000); err != nil {
//	    log.Warn(err)
//	}
//	defer p.RevokeRules(5000)
package firewall
