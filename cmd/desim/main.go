// Command desim runs the bundled demonstration models.
package main

func main() {
	Execute()
}
