/*
Package health probes the listeners of a running mihomo daemon.

systemctl only knows whether the process is alive. These checks confirm the
proxy ports accept connections and the external controller answers, which is
what `mihoro status` prints below the unit status.

# Checks

	port / socks-port / mixed-port   TCP connect to 127.0.0.1:<port>
	external-controller              GET http://<controller>/version

Wildcard bind addresses (0.0.0.0, ::, *) are probed on loopback. When a
mixed port is configured, separate ports equal to it are not probed twice.
The controller request carries `Authorization: Bearer <secret>` when a
secret is set.

Checks never return errors; a failure is a Result with Healthy false and a
message suitable for display.
*/
package health
