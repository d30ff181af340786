package types

// Version is the canonical client version.
// It is reported to the remote service in the mex-clientversion header
// and by the version command.
const Version = "0.3.0"

// ClientName prefixes Version in the mex-clientversion header.
const ClientName = "meshclient"

// ClientVersionHeader returns the value sent as mex-clientversion,
// e.g. "meshclient==0.3.0".
func ClientVersionHeader() string {
	return ClientName + "==" + Version
}
