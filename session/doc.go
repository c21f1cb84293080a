// Package session wires a complete layer editing document: the frame
// store, one undo history shared by every frame, the transform controller
// of the active frame, the frame compositor and the texture gateway.
//
// A Session listens to layer events on its bus and re-renders only the
// frames they touch. Render coalesces any number of edits into one render
// per frame:
//
//	s, err := session.New(session.WithRenderer(render.NewSoftwareRenderer()))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	reg := s.Registry()
//	_ = reg.AddStroke(reg.ActiveID(), stroke.New(points, stroke.DefaultStyle()))
//	if _, err := s.Render(); err != nil {
//	    return err
//	}
//	img, _ := s.Snapshot(s.ActiveFrame().ID)
//
// Config loads the same options from a TOML file.
package session
