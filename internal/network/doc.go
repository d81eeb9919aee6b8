// Package network turns the device into an isolated Wi-Fi access point.
//
// Bring-up runs in a fixed order and stops at the first failure:
//
//  1. set the hostname
//  2. disable IPv4/IPv6 forwarding and confirm IPv4 forwarding reads back off
//  3. make the configured address the only IPv4 address on the interface
//  4. write hostapd.conf and start hostapd in the background
//
// The gateway from the settings is recorded but no route is installed, so
// nothing a client sends can leave the AP network.
//
// All system access goes through the Netlinker, SystemController,
// CommandExecutor and HostnameSetter interfaces. NewDryRunManager swaps them
// for recorders so the sequence can be inspected off-device.
//
// DHCPServer leases addresses in the AP subnet without a router option.
// Advertise publishes the web server over mDNS as <hostname>.local.
package network
