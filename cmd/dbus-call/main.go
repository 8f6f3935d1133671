// Program dbus-call performs the SASL handshake against a D-Bus
// socket and issues either a RequestName or an arbitrary method call,
// printing the reply. It replaces the teacher's systemd-specific
// units demo with a general-purpose one now that the package speaks
// arbitrary D-Bus messages rather than one hardcoded request shape.
package main

import (
	"fmt"
	"os"

	"github.com/marselester/dbus"
	"github.com/marselester/dbus/unixtransport"
	"github.com/spf13/cobra"
)

var address string

func main() {
	root := &cobra.Command{
		Use:   "dbus-call",
		Short: "Send D-Bus method calls from the command line",
	}
	root.PersistentFlags().StringVar(&address, "address", "", "bus address (unix:path=...), defaults to $DBUS_STARTER_ADDRESS, then $DBUS_SESSION_BUS_ADDRESS, then the system bus")

	root.AddCommand(newCallCmd())
	root.AddCommand(newRequestNameCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial() (*dbus.Connection, *unixtransport.Epoll, error) {
	addr := address
	if addr == "" {
		a, err := dbus.AddressFromEnv()
		if err != nil {
			return nil, nil, err
		}
		addr = a
	}
	path, err := dbus.ParseUnixAddress(addr)
	if err != nil {
		return nil, nil, err
	}

	conn, err := unixtransport.Dial(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", path, err)
	}
	epoll, err := unixtransport.NewEpoll(conn)
	if err != nil {
		return nil, nil, fmt.Errorf("epoll: %w", err)
	}

	c := dbus.NewConnection(conn, dbus.WithUID(os.Getuid()))
	return c, epoll, nil
}

func newCallCmd() *cobra.Command {
	var path, iface, member, dest string

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Invoke a method and print its reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			objPath, err := dbus.ParseObjectPath(path)
			if err != nil {
				return err
			}

			c, epoll, err := dial()
			if err != nil {
				return err
			}
			defer epoll.Close()

			msg := dbus.MethodCall(objPath, member).
				WithInterface(iface).
				WithDestination(dest)

			reply, err := c.Call(epoll, msg)
			if err != nil {
				return err
			}
			if reply.Type == dbus.TypeError {
				return fmt.Errorf("%s", reply.ErrorName)
			}
			fmt.Printf("reply signature: %s\n", reply.Signature())
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "/", "object path")
	cmd.Flags().StringVar(&iface, "iface", "", "interface name")
	cmd.Flags().StringVar(&member, "member", "", "method name")
	cmd.Flags().StringVar(&dest, "dest", "", "destination bus name")
	return cmd
}

func newRequestNameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request-name [name]",
		Short: "Request a well-known bus name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, epoll, err := dial()
			if err != nil {
				return err
			}
			defer epoll.Close()

			reply, err := c.RequestName(epoll, args[0], 0)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s (unique name %s)\n", args[0], reply, c.UniqueName())
			return nil
		},
	}
	return cmd
}
