// Command vdisk inspects, formats and converts virtual floppy disk
// images (VDK, JVC/DSK/OS-9, DMK) without needing a running emulator.
package main

func main() {
	Execute()
}
