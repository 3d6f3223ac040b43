// Command arborist is a thin CLI over the training and prediction engine:
// train reads a CSV into a forest, predict scores a CSV against one.
package main

import "github.com/decisionpatterns/arborist/cmd/arborist/cmd"

func main() {
	cmd.Execute()
}
