// autoshutdown stops running Dev instances opted into AutoShutdown and
// records an audit entry for each one.
package main

func main() {
	Execute()
}
