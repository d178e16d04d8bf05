package callbacks

// Resource names the kind of entity an event concerns. Any string is legal;
// the constants below are the catalogue shared by independently deployed
// publishers and subscribers. Adding a name is backward compatible, renaming
// one is not.
type Resource string

const (
	Agent                    Resource = "agent"
	FloatingIP               Resource = "floatingip"
	FloatingIPPortForwarding Resource = "floatingip_port_forwarding"
	Network                  Resource = "network"
	Networks                 Resource = "networks"
	Port                     Resource = "port"
	Ports                    Resource = "ports"
	PortDevice               Resource = "port_device"
	Process                  Resource = "process"
	RBACPolicy               Resource = "rbac_policy"
	Router                   Resource = "router"
	RouterController         Resource = "router_controller"
	RouterGateway            Resource = "router_gateway"
	RouterInterface          Resource = "router_interface"
	SecurityGroup            Resource = "security_group"
	SecurityGroupRule        Resource = "security_group_rule"
	Segment                  Resource = "segment"
	SegmentHostMapping       Resource = "segment_host_mapping"
	Subnet                   Resource = "subnet"
	Subnets                  Resource = "subnets"
	SubnetGateway            Resource = "subnet_gateway"
	SubnetPoolAddressScope   Resource = "subnetpool_address_scope"
	Subports                 Resource = "subports"
	Trunk                    Resource = "trunk"
	TrunkPlugin              Resource = "trunk_plugin"
)
