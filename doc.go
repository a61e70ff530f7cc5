/*
Package roboflow runs scenario-driven UI automation against mobile devices.

A scenario is a directed graph of states. Entering a state performs its actions on the device
(taps, long presses, typed text, app launches, waits). The interpreter then dumps the device's
UI hierarchy once and moves to the first successor whose guard holds, ordered by descending
priority. A state without successors ends the run successfully; a state whose successors all
reject the snapshot ends it as failed.

Guards are conjunctions of statements comparing two operands, each either a constant or an
XPath query evaluated against the hierarchy dump.

# Usage

	p, err := roboflow.LoadProject("project.xml")
	if err != nil {
		log.Fatal(err)
	}

	dev := adb.New(adb.Config{Serial: "emulator-5554"})
	eng, err := roboflow.New(dev, roboflow.WithStore(file.NewStore("")))
	if err != nil {
		log.Fatal(err)
	}

	sc, _ := p.Scenario("login")
	report, err := eng.Run(ctx, sc)

Runs on the same device are serialized. Reports are saved to the configured store
even when a run aborts.
*/
package roboflow
