// Command invoicectl opera el motor de emisión desde la terminal: lotes, transiciones,
// contadores y migraciones.
package main

func main() {
	Execute()
}
