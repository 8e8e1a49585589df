// The reference game manager packaged as a loadable plugin.
//
//	go build -buildmode=plugin -o refgm.so ./plugins/refgm
package main

import (
	"tanksim/gm"
	"tanksim/registry"
)

func init() {
	registry.RegisterGameManager(gm.New)
}

func main() {}
